package feed

import (
	"fmt"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
)

// RequestType selects which bucket a request pages through. Unset means the
// page is taken over the unrestricted set and all three buckets are
// populated from it.
type RequestType string

const (
	RequestUnset      RequestType = ""
	RequestAll        RequestType = "all"
	RequestMyRequest  RequestType = "my_request"
	RequestMyApproval RequestType = "my_approval"
)

// ParseRequestType validates the request's requestType parameter.
func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case RequestUnset, RequestAll, RequestMyRequest, RequestMyApproval:
		return RequestType(s), nil
	default:
		return RequestUnset, apperrors.InvalidInput("requestType",
			fmt.Sprintf("must be one of my_request, my_approval, all; got %q", s))
	}
}

// Query is a fully validated feed query: everything the storage layer or the
// snapshot evaluator needs to produce one page.
type Query struct {
	Window      Window
	Filters     Filters
	Order       OrderSpec
	Limit       int
	Page        int
	User        User
	RequestType RequestType
}

// Offset returns the row offset of the requested page.
func (q *Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// InBucket reports whether a classified document belongs to the bucket the
// query pages through.
func (q *Query) InBucket(d *UnifiedDocument) bool {
	switch q.RequestType {
	case RequestMyRequest:
		return d.InMyRequest
	case RequestMyApproval:
		return d.InMyApproval
	default:
		return true
	}
}

// Result is one evaluated page: the classified rows of the page plus the
// three independent totals, each computed over the full filtered set.
type Result struct {
	Rows             []UnifiedDocument
	AllTotal         int64
	MyRequestsTotal  int64
	MyApprovalsTotal int64
}

// TotalPages returns ceil(total/limit), the page count of one bucket.
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

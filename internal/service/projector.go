package service

import (
	"github.com/provant-erp/be-prs-dashboard/internal/feed"
)

// ProjectedDocument is one feed row as exposed upstream: the unified
// document plus its display label. The classifier scratch fields are
// excluded from serialization on the embedded document.
type ProjectedDocument struct {
	feed.UnifiedDocument
	DisplayType string `json:"displayType"`
}

// Meta is the pagination metadata block of a feed response.
type Meta struct {
	Page                  int    `json:"page"`
	Limit                 int    `json:"limit"`
	MyRequestsTotal       int64  `json:"myRequestsTotal"`
	MyRequestsTotalPages  int64  `json:"myRequestsTotalPages"`
	MyApprovalsTotal      int64  `json:"myApprovalsTotal"`
	MyApprovalsTotalPages int64  `json:"myApprovalsTotalPages"`
	AllTotal              int64  `json:"allTotal"`
	AllTotalPages         int64  `json:"allTotalPages"`
	Message               string `json:"message"`
}

// FeedResponse is the upstream response contract.
type FeedResponse struct {
	MyRequest  []ProjectedDocument `json:"my_request"`
	MyApproval []ProjectedDocument `json:"my_approval"`
	All        []ProjectedDocument `json:"all"`
	Meta       Meta                `json:"meta"`
}

// Project maps an evaluated page onto the response contract: rows are
// bucketed by their classified membership (a row may land in several
// buckets), doc types gain display labels, and the metadata block carries
// the three independent totals.
func Project(q *feed.Query, res *feed.Result) *FeedResponse {
	resp := &FeedResponse{
		MyRequest:  make([]ProjectedDocument, 0, len(res.Rows)),
		MyApproval: make([]ProjectedDocument, 0, len(res.Rows)),
		All:        make([]ProjectedDocument, 0, len(res.Rows)),
		Meta: Meta{
			Page:                  q.Page,
			Limit:                 q.Limit,
			MyRequestsTotal:       res.MyRequestsTotal,
			MyRequestsTotalPages:  feed.TotalPages(res.MyRequestsTotal, q.Limit),
			MyApprovalsTotal:      res.MyApprovalsTotal,
			MyApprovalsTotalPages: feed.TotalPages(res.MyApprovalsTotal, q.Limit),
			AllTotal:              res.AllTotal,
			AllTotalPages:         feed.TotalPages(res.AllTotal, q.Limit),
			Message:               "Successfully fetched requisition documents.",
		},
	}

	fillMyRequest := q.RequestType == feed.RequestUnset || q.RequestType == feed.RequestMyRequest
	fillMyApproval := q.RequestType == feed.RequestUnset || q.RequestType == feed.RequestMyApproval
	fillAll := q.RequestType == feed.RequestUnset || q.RequestType == feed.RequestAll

	for i := range res.Rows {
		doc := ProjectedDocument{
			UnifiedDocument: res.Rows[i],
			DisplayType:     res.Rows[i].DocType.DisplayLabel(),
		}
		if fillMyRequest && doc.InMyRequest {
			resp.MyRequest = append(resp.MyRequest, doc)
		}
		if fillMyApproval && doc.InMyApproval {
			resp.MyApproval = append(resp.MyApproval, doc)
		}
		if fillAll {
			resp.All = append(resp.All, doc)
		}
	}

	return resp
}

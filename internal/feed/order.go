package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
)

// OrderField is a whitelisted custom ordering field.
type OrderField string

const (
	OrderDefault   OrderField = ""
	OrderRefNumber OrderField = "ref_number"
	OrderDocType   OrderField = "doc_type"
	OrderRequestor OrderField = "requestor"
	OrderCompany   OrderField = "company"
	OrderStatus    OrderField = "status"
	OrderUpdatedAt OrderField = "updated_at"
)

var orderFields = map[string]OrderField{
	"refnumber": OrderRefNumber,
	"doctype":   OrderDocType,
	"requestor": OrderRequestor,
	"company":   OrderCompany,
	"status":    OrderStatus,
	"updatedat": OrderUpdatedAt,
}

// OrderSpec is a parsed, validated ordering.
type OrderSpec struct {
	Field OrderField
	Desc  bool
}

// ParseOrder parses the request's order parameter: "" for the default
// ordering, or "<field>", "<field> asc", "<field> desc" (":" also accepted
// as separator; field casing and underscores are normalized). Unknown fields
// are rejected before any storage work happens.
func ParseOrder(s string) (OrderSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OrderSpec{}, nil
	}

	parts := strings.Fields(strings.ReplaceAll(s, ":", " "))
	if len(parts) == 0 {
		// Separator-only input like ":" survives the TrimSpace above.
		return OrderSpec{}, apperrors.InvalidInput("order", "order must name a field")
	}
	field, ok := orderFields[normalizeAlias(parts[0])]
	if !ok {
		return OrderSpec{}, apperrors.InvalidInput("order", fmt.Sprintf("unknown order field %q", parts[0]))
	}

	spec := OrderSpec{Field: field}
	if len(parts) > 1 {
		switch strings.ToLower(parts[1]) {
		case "asc":
		case "desc":
			spec.Desc = true
		default:
			return OrderSpec{}, apperrors.InvalidInput("order", fmt.Sprintf("unknown order direction %q", parts[1]))
		}
	}
	if len(parts) > 2 {
		return OrderSpec{}, apperrors.InvalidInput("order", "expected \"<field> [asc|desc]\"")
	}
	return spec, nil
}

// SQL renders the ORDER BY expression list (without the keyword) over the
// union's column names. Every ordering ends in (doc_type_priority, id) so
// the result is a total order and pagination is stable across pages; ids are
// entity-local, so doc_type_priority must take part in the final tie-break.
func (o OrderSpec) SQL() string {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}

	switch o.Field {
	case OrderDefault:
		// Open documents first, most recently touched first within a status.
		return "(root_status = 'closed') ASC, root_status ASC, updated_at DESC, grouping_id ASC, doc_type_priority ASC, id ASC"
	case OrderDocType:
		return fmt.Sprintf("doc_type_priority %s, id ASC", dir)
	case OrderRefNumber:
		return fmt.Sprintf("ref_number %s, doc_type_priority ASC, id ASC", dir)
	case OrderRequestor:
		return fmt.Sprintf("requestor_name %s, doc_type_priority ASC, id ASC", dir)
	case OrderCompany:
		return fmt.Sprintf("company_name %s, doc_type_priority ASC, id ASC", dir)
	case OrderStatus:
		return fmt.Sprintf("status %s, doc_type_priority ASC, id ASC", dir)
	case OrderUpdatedAt:
		return fmt.Sprintf("updated_at %s, doc_type_priority ASC, id ASC", dir)
	default:
		return "doc_type_priority ASC, id ASC"
	}
}

// Less is the in-memory comparator equivalent to SQL, used by the snapshot
// path. The two must impose the same total order.
func (o OrderSpec) Less(a, b *UnifiedDocument) bool {
	for _, c := range o.compare(a, b) {
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func (o OrderSpec) compare(a, b *UnifiedDocument) []int {
	dir := 1
	if o.Desc {
		dir = -1
	}

	tie := []int{
		cmpInt(a.DocType.Priority(), b.DocType.Priority()),
		cmpInt64(a.ID, b.ID),
	}

	switch o.Field {
	case OrderDefault:
		return append([]int{
			cmpBool(a.RootStatus == "closed", b.RootStatus == "closed"),
			strings.Compare(a.RootStatus, b.RootStatus),
			-cmpTime(a.UpdatedAt, b.UpdatedAt),
			strings.Compare(a.GroupingID, b.GroupingID),
		}, tie...)
	case OrderDocType:
		return []int{dir * cmpInt(a.DocType.Priority(), b.DocType.Priority()), cmpInt64(a.ID, b.ID)}
	case OrderRefNumber:
		return append([]int{dir * strings.Compare(a.RefNumber, b.RefNumber)}, tie...)
	case OrderRequestor:
		return append([]int{dir * strings.Compare(a.RequestorName, b.RequestorName)}, tie...)
	case OrderCompany:
		return append([]int{dir * strings.Compare(a.CompanyName, b.CompanyName)}, tie...)
	case OrderStatus:
		return append([]int{dir * strings.Compare(a.Status, b.Status)}, tie...)
	case OrderUpdatedAt:
		return append([]int{dir * cmpTime(a.UpdatedAt, b.UpdatedAt)}, tie...)
	default:
		return tie
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	default:
		return 0
	}
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

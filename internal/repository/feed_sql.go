package repository

import (
	"fmt"
	"strings"

	"github.com/provant-erp/be-prs-dashboard/internal/feed"
)

// SQL assembly for the seven-way document union. All tokens interpolated
// here are compile-time constants derived from the feed package's type
// tables; user input only ever travels through query parameters.
//
// The union is shaped in levels:
//
//	union   — one branch per entity table, normalized columns, time window
//	          predicate per branch so the store can exclude chunks
//	named   — lookup names joined in (company, department, project, requestor)
//	flagged — per-user bucket membership flags + request filters
//
// The window bounds are always $1/$2; pgx allows a placeholder to repeat, so
// every branch shares them.

type unionBranch struct {
	docType feed.DocType
	table   string
	root    bool // self-contained: no owning requisition join
}

var unionBranches = []unionBranch{
	{feed.DocRequisition, "requisitions", true},
	{feed.DocCanvass, "canvasses", false},
	{feed.DocPurchaseOrder, "purchase_orders", false},
	{feed.DocInvoice, "invoices", false},
	{feed.DocDeliveryReceipt, "delivery_receipts", false},
	{feed.DocPaymentRequest, "payment_requests", false},
	{feed.DocNonRequisition, "non_requisitions", true},
}

// refNumberCase renders the per-type ref number rules in SQL. Must agree
// byte-for-byte with the feed package's formatter for the same type.
func refNumberCase(alias string, t feed.DocType) string {
	prefix := feed.RefNumberPrefixes()[t]
	return fmt.Sprintf(
		"CASE WHEN %s.status = '%s' THEN '%s-%s' || %s.id::text ELSE '%s-' || %s.series_no END",
		alias, t.DraftStatus(), prefix, feed.DraftMarker, alias, prefix, alias)
}

// approverSetExpr renders the deduplicated union of the primary and
// alternate approver columns.
func approverSetExpr(alias string) string {
	return fmt.Sprintf(
		"ARRAY(SELECT DISTINCT a FROM unnest(ARRAY[%s.approver_id, %s.alt_approver_id]) AS a WHERE a IS NOT NULL ORDER BY a)",
		alias, alias)
}

func (b unionBranch) sql() string {
	if b.root {
		grouping := refNumberCase("t", b.docType)
		if b.docType == feed.DocNonRequisition {
			// Non-requisitions have no owning requisition; synthesize a key.
			grouping = "'NRS:' || t.id::text"
		}
		return fmt.Sprintf(`SELECT t.id,
       '%s'::text AS doc_type,
       %d AS doc_type_priority,
       %s AS ref_number,
       t.requestor_id, t.company_id, t.project_id, t.department_id,
       t.updated_at, t.status, t.status AS root_status,
       %s AS grouping_id,
       t.assigned_to_user_id,
       %s AS approvers
FROM %s t
WHERE t.updated_at >= $1 AND t.updated_at < $2`,
			b.docType, b.docType.Priority(), refNumberCase("t", b.docType),
			grouping, approverSetExpr("t"), b.table)
	}

	// Sub-documents denormalize ownership fields from the requisition; the
	// inner join drops orphaned rows (tracked separately, see CountOrphans).
	return fmt.Sprintf(`SELECT t.id,
       '%s'::text AS doc_type,
       %d AS doc_type_priority,
       %s AS ref_number,
       r.requestor_id, r.company_id, r.project_id, r.department_id,
       t.updated_at, t.status, r.status AS root_status,
       %s AS grouping_id,
       t.assigned_to_user_id,
       %s AS approvers
FROM %s t
INNER JOIN requisitions r ON r.id = t.requisition_id
WHERE t.updated_at >= $1 AND t.updated_at < $2`,
		b.docType, b.docType.Priority(), refNumberCase("t", b.docType),
		refNumberCase("r", feed.DocRequisition), approverSetExpr("t"), b.table)
}

// unionSQL is the seven-branch UNION ALL over the entity tables.
func unionSQL() string {
	parts := make([]string, 0, len(unionBranches))
	for _, b := range unionBranches {
		parts = append(parts, b.sql())
	}
	return strings.Join(parts, "\nUNION ALL\n")
}

// namedSQL wraps the union with the display-name lookups the filters and the
// response need.
func namedSQL() string {
	return fmt.Sprintf(`SELECT d.*,
       COALESCE(co.name, '') AS company_name,
       COALESCE(de.name, '') AS department_name,
       COALESCE(pj.name, '') AS project_name,
       COALESCE(u.full_name, '') AS requestor_name
FROM (
%s
) d
LEFT JOIN companies co ON co.id = d.company_id
LEFT JOIN departments de ON de.id = d.department_id
LEFT JOIN projects pj ON pj.id = d.project_id
LEFT JOIN users u ON u.id = d.requestor_id`, unionSQL())
}

// draftGuardCase renders the per-type non-draft approval guard from the same
// status table the in-memory classifier uses.
func draftGuardCase() string {
	drafts := feed.DraftStatuses()
	var b strings.Builder
	b.WriteString("CASE doc_type")
	for _, t := range feed.AllDocTypes {
		fmt.Fprintf(&b, " WHEN '%s' THEN '%s'", t, drafts[t])
	}
	b.WriteString(" END")
	return b.String()
}

// bucketFlagExprs renders the my_request / my_approval membership flags.
// userParam and privParam are positional placeholders ("$5" etc.) bound to
// the requesting user's id and privileged-class flag.
func bucketFlagExprs(userParam, privParam string) (inMyRequest, inMyApproval string) {
	inMyRequest = fmt.Sprintf(
		"(requestor_id = %s AND doc_type IN ('%s', '%s'))",
		userParam, feed.DocRequisition, feed.DocNonRequisition)

	// assigned_to_user_id is nullable; for privileged users the assignment
	// clause then yields NULL, which poisons the whole OR under three-valued
	// logic. COALESCE pins the flag to a real boolean.
	inMyApproval = fmt.Sprintf(
		"COALESCE((%s = ANY(approvers) AND status <> %s)"+
			" OR (%s AND assigned_to_user_id = %s)"+
			" OR (%s AND doc_type = '%s' AND status = 'assigning'), FALSE)",
		userParam, draftGuardCase(),
		privParam, userParam,
		privParam, feed.DocRequisition)
	return inMyRequest, inMyApproval
}

// bucketRestriction renders the outer WHERE limiting the page to the
// requested bucket. Flags are plain boolean columns at that level.
func bucketRestriction(rt feed.RequestType) string {
	switch rt {
	case feed.RequestMyRequest:
		return "in_my_request"
	case feed.RequestMyApproval:
		return "in_my_approval"
	default:
		return "TRUE"
	}
}

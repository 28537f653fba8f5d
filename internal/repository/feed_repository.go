package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
	"github.com/provant-erp/be-prs-dashboard/internal/database"
	"github.com/provant-erp/be-prs-dashboard/internal/feed"
)

// docColumns is the projection shared by every page query.
const docColumns = `id, doc_type, ref_number, requestor_id, company_id, project_id, department_id,
       company_name, department_name, project_name, requestor_name,
       updated_at, status, root_status, grouping_id, assigned_to_user_id, approvers,
       in_my_request, in_my_approval`

// FeedRepository executes the unified document queries against the tiered
// store.
type FeedRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(db *database.DB, log zerolog.Logger) *FeedRepository {
	return &FeedRepository{db: db, log: log}
}

// flagged renders the flagged level of the union (normalized documents with
// display names, filter predicates applied, bucket flags computed for the
// querying user) and the full argument list up to but excluding pagination.
func flagged(q *feed.Query) (sql string, args []interface{}, next int, err error) {
	set, err := q.Filters.Compile()
	if err != nil {
		return "", nil, 0, apperrors.At(err, apperrors.StageFilterCompile)
	}

	// $1/$2 are the window bounds, shared by every union branch.
	where, filterArgs, next := set.Render(3)

	userParam := fmt.Sprintf("$%d", next)
	privParam := fmt.Sprintf("$%d", next+1)
	next += 2

	inMyRequest, inMyApproval := bucketFlagExprs(userParam, privParam)

	sql = fmt.Sprintf(`SELECT n.*,
       %s AS in_my_request,
       %s AS in_my_approval
FROM (
%s
) n
WHERE %s`, inMyRequest, inMyApproval, namedSQL(), where)

	args = append(args, q.Window.Start, q.Window.End)
	args = append(args, filterArgs...)
	args = append(args, q.User.ID, feed.ClassifyRole(q.User.Role) == feed.RolePrivileged)
	return sql, args, next, nil
}

// FetchPage runs the optimized single-pass query: one statement computes the
// page of rows and the three bucket totals via window aggregates, where the
// legacy path needed a query per count.
func (r *FeedRepository) FetchPage(ctx context.Context, q *feed.Query) (*feed.Result, error) {
	inner, args, next, err := flagged(q)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT %s,
       all_total, my_requests_total, my_approvals_total
FROM (
  SELECT f.*,
         COUNT(*) OVER () AS all_total,
         COUNT(*) FILTER (WHERE f.in_my_request) OVER () AS my_requests_total,
         COUNT(*) FILTER (WHERE f.in_my_approval) OVER () AS my_approvals_total
  FROM (
%s
  ) f
) g
WHERE %s
ORDER BY %s
LIMIT $%d OFFSET $%d`,
		docColumns, inner, bucketRestriction(q.RequestType), q.Order.SQL(), next, next+1)

	args = append(args, q.Limit, q.Offset())

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.At(classifyQueryErr(err, "failed to execute feed page query"), apperrors.StagePaginate)
	}
	defer rows.Close()

	res := &feed.Result{Rows: make([]feed.UnifiedDocument, 0, q.Limit)}
	for rows.Next() {
		var doc feed.UnifiedDocument
		if err := scanDoc(rows, &doc, &res.AllTotal, &res.MyRequestsTotal, &res.MyApprovalsTotal); err != nil {
			return nil, apperrors.At(classifyQueryErr(err, "failed to scan feed row"), apperrors.StagePaginate)
		}
		res.Rows = append(res.Rows, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.At(classifyQueryErr(err, "failed to read feed rows"), apperrors.StagePaginate)
	}

	// A bucket-restricted page can come back empty while other buckets still
	// have rows; the window totals travel on rows, so fetch them separately.
	if len(res.Rows) == 0 {
		if err := r.fetchTotals(ctx, q, res); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// fetchTotals computes the three bucket totals without paging.
func (r *FeedRepository) fetchTotals(ctx context.Context, q *feed.Query, res *feed.Result) error {
	inner, args, _, err := flagged(q)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`SELECT COUNT(*),
       COUNT(*) FILTER (WHERE f.in_my_request),
       COUNT(*) FILTER (WHERE f.in_my_approval)
FROM (
%s
) f`, inner)

	err = r.db.QueryRow(ctx, sql, args...).Scan(&res.AllTotal, &res.MyRequestsTotal, &res.MyApprovalsTotal)
	if err != nil {
		return apperrors.At(classifyQueryErr(err, "failed to count feed totals"), apperrors.StagePaginate)
	}
	return nil
}

// FetchPageLegacy is the reference multi-query implementation: one count
// query per bucket plus a separate page query. Kept as the one-shot
// degradation path when the optimized query fails.
func (r *FeedRepository) FetchPageLegacy(ctx context.Context, q *feed.Query) (*feed.Result, error) {
	inner, args, next, err := flagged(q)
	if err != nil {
		return nil, err
	}

	res := &feed.Result{}

	counts := []struct {
		restrict string
		dest     *int64
	}{
		{"TRUE", &res.AllTotal},
		{"f.in_my_request", &res.MyRequestsTotal},
		{"f.in_my_approval", &res.MyApprovalsTotal},
	}
	for _, c := range counts {
		sql := fmt.Sprintf("SELECT COUNT(*) FROM (\n%s\n) f WHERE %s", inner, c.restrict)
		if err := r.db.QueryRow(ctx, sql, args...).Scan(c.dest); err != nil {
			return nil, apperrors.At(classifyQueryErr(err, "failed to count feed bucket"), apperrors.StagePaginate)
		}
	}

	pageSQL := fmt.Sprintf(`SELECT %s
FROM (
%s
) f
WHERE %s
ORDER BY %s
LIMIT $%d OFFSET $%d`,
		docColumns, inner, bucketRestriction(q.RequestType), q.Order.SQL(), next, next+1)

	pageArgs := append(append([]interface{}{}, args...), q.Limit, q.Offset())

	rows, err := r.db.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, apperrors.At(classifyQueryErr(err, "failed to execute legacy feed page query"), apperrors.StagePaginate)
	}
	defer rows.Close()

	res.Rows = make([]feed.UnifiedDocument, 0, q.Limit)
	for rows.Next() {
		var doc feed.UnifiedDocument
		if err := scanDoc(rows, &doc, nil, nil, nil); err != nil {
			return nil, apperrors.At(classifyQueryErr(err, "failed to scan legacy feed row"), apperrors.StagePaginate)
		}
		res.Rows = append(res.Rows, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.At(classifyQueryErr(err, "failed to read legacy feed rows"), apperrors.StagePaginate)
	}

	return res, nil
}

// CountOrphans counts sub-documents in the window whose owning requisition is
// missing. Orphans silently drop out of the union's inner joins; this audit
// makes that visible without failing the feed query.
func (r *FeedRepository) CountOrphans(ctx context.Context, w feed.Window) (map[string]int64, error) {
	var (
		selects []string
		tables  []string
	)
	for _, b := range unionBranches {
		if b.root {
			continue
		}
		tables = append(tables, b.table)
		selects = append(selects, fmt.Sprintf(
			"(SELECT COUNT(*) FROM %s t LEFT JOIN requisitions r ON r.id = t.requisition_id"+
				" WHERE r.id IS NULL AND t.updated_at >= $1 AND t.updated_at < $2)", b.table))
	}

	sql := "SELECT " + strings.Join(selects, ",\n       ")

	dests := make([]int64, len(selects))
	scanArgs := make([]interface{}, len(selects))
	for i := range dests {
		scanArgs[i] = &dests[i]
	}

	if err := r.db.QueryRow(ctx, sql, w.Start, w.End).Scan(scanArgs...); err != nil {
		return nil, apperrors.At(classifyQueryErr(err, "failed to count orphaned documents"), apperrors.StageUnionBuild)
	}

	counts := make(map[string]int64, len(tables))
	for i, table := range tables {
		if dests[i] > 0 {
			counts[table] = dests[i]
		}
	}
	return counts, nil
}

// scanDoc scans one feed row. The totals pointers are nil for queries that
// do not project window counts.
func scanDoc(rows pgx.Rows, doc *feed.UnifiedDocument, allTotal, myReqTotal, myAppTotal *int64) error {
	dest := []interface{}{
		&doc.ID, &doc.DocType, &doc.RefNumber,
		&doc.RequestorID, &doc.CompanyID, &doc.ProjectID, &doc.DepartmentID,
		&doc.CompanyName, &doc.DepartmentName, &doc.ProjectName, &doc.RequestorName,
		&doc.UpdatedAt, &doc.Status, &doc.RootStatus, &doc.GroupingID,
		&doc.AssignedToUserID, &doc.Approvers,
		&doc.InMyRequest, &doc.InMyApproval,
	}
	if allTotal != nil {
		dest = append(dest, allTotal, myReqTotal, myAppTotal)
	}
	return rows.Scan(dest...)
}

// classifyQueryErr maps storage failures onto the error taxonomy: deadline
// expiry surfaces as a timeout, everything else as a query execution error.
func classifyQueryErr(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "query deadline exceeded")
	}
	return apperrors.Wrap(err, apperrors.CodeQueryExecution, message)
}

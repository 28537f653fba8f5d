package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
	"github.com/provant-erp/be-prs-dashboard/internal/database"
	"github.com/provant-erp/be-prs-dashboard/internal/feed"
)

// SnapshotRepository feeds the materialized snapshot refresher: it scans the
// full union output for a window, unclassified (bucket membership is
// per-user and computed at query time).
type SnapshotRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *database.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, log: log}
}

// FetchWindow returns every unified document whose updatedAt falls inside w.
func (r *SnapshotRepository) FetchWindow(ctx context.Context, w feed.Window) ([]feed.UnifiedDocument, error) {
	sql := fmt.Sprintf(`SELECT id, doc_type, ref_number, requestor_id, company_id, project_id, department_id,
       company_name, department_name, project_name, requestor_name,
       updated_at, status, root_status, grouping_id, assigned_to_user_id, approvers
FROM (
%s
) n
ORDER BY updated_at DESC, doc_type, id`, namedSQL())

	rows, err := r.db.Query(ctx, sql, w.Start, w.End)
	if err != nil {
		return nil, apperrors.At(classifyQueryErr(err, "failed to scan snapshot window"), apperrors.StageUnionBuild)
	}
	defer rows.Close()

	docs := make([]feed.UnifiedDocument, 0, 1024)
	for rows.Next() {
		var doc feed.UnifiedDocument
		err := rows.Scan(
			&doc.ID, &doc.DocType, &doc.RefNumber,
			&doc.RequestorID, &doc.CompanyID, &doc.ProjectID, &doc.DepartmentID,
			&doc.CompanyName, &doc.DepartmentName, &doc.ProjectName, &doc.RequestorName,
			&doc.UpdatedAt, &doc.Status, &doc.RootStatus, &doc.GroupingID,
			&doc.AssignedToUserID, &doc.Approvers,
		)
		if err != nil {
			return nil, apperrors.At(classifyQueryErr(err, "failed to scan snapshot row"), apperrors.StageUnionBuild)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.At(classifyQueryErr(err, "failed to read snapshot rows"), apperrors.StageUnionBuild)
	}

	return docs, nil
}

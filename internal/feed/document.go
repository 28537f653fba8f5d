package feed

import (
	"sort"
	"time"
)

// UnifiedDocument is one derived row of the aggregated feed: a workflow
// entity of any of the seven types normalized to a common shape. It has no
// stored identity; it is recomputed from the source tables (live or via
// snapshot) on every query.
type UnifiedDocument struct {
	ID               int64     `json:"id"`
	DocType          DocType   `json:"docType"`
	RefNumber        string    `json:"refNumber"`
	RequestorID      int64     `json:"requestorId"`
	CompanyID        int64     `json:"companyId"`
	ProjectID        int64     `json:"projectId"`
	DepartmentID     int64     `json:"departmentId"`
	CompanyName      string    `json:"companyName"`
	DepartmentName   string    `json:"departmentName"`
	ProjectName      string    `json:"projectName"`
	RequestorName    string    `json:"requestorName"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Status           string    `json:"status"`
	RootStatus       string    `json:"rootStatus"`
	GroupingID       string    `json:"groupingId"`
	AssignedToUserID *int64    `json:"assignedToUserId,omitempty"`
	Approvers        []int64   `json:"approvers"`

	// Classifier scratch fields; stripped by the projector.
	InMyRequest  bool `json:"-"`
	InMyApproval bool `json:"-"`
}

// IsDraft reports whether the document is in its type's draft status.
func (d *UnifiedDocument) IsDraft() bool {
	return d.Status == d.DocType.DraftStatus()
}

// HasApprover reports membership of userID in the document's approver set.
// This is true set membership, not text matching: id 5 never matches 15.
func (d *UnifiedDocument) HasApprover(userID int64) bool {
	for _, id := range d.Approvers {
		if id == userID {
			return true
		}
	}
	return false
}

// ApproverSet merges the primary and alternate approver columns into a
// sorted, deduplicated set. Nil entries (unset columns) are skipped.
func ApproverSet(ids ...*int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	set := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == nil {
			continue
		}
		if _, dup := seen[*id]; dup {
			continue
		}
		seen[*id] = struct{}{}
		set = append(set, *id)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// DedupApprovers normalizes an approver list already read from storage:
// sorted, duplicates removed.
func DedupApprovers(ids []int64) []int64 {
	ptrs := make([]*int64, len(ids))
	for i := range ids {
		ptrs[i] = &ids[i]
	}
	return ApproverSet(ptrs...)
}

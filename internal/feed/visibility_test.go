package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRole(t *testing.T) {
	t.Parallel()

	for _, role := range []string{"purchasing_staff", "purchasing_head", "admin"} {
		assert.Equal(t, RolePrivileged, ClassifyRole(role), role)
	}
	for _, role := range []string{"requestor", "approver", "engineer", ""} {
		assert.Equal(t, RoleRegular, ClassifyRole(role), role)
	}
}

func TestClassifyMyRequest(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	user := User{ID: 7, Role: "requestor"}

	tests := []struct {
		name string
		doc  UnifiedDocument
		want bool
	}{
		{"own requisition", UnifiedDocument{DocType: DocRequisition, RequestorID: 7}, true},
		{"own non-requisition", UnifiedDocument{DocType: DocNonRequisition, RequestorID: 7}, true},
		{"someone else's requisition", UnifiedDocument{DocType: DocRequisition, RequestorID: 8}, false},
		// Sub-documents never land in my_request even when the feed
		// denormalizes the requestor onto them.
		{"own canvass", UnifiedDocument{DocType: DocCanvass, RequestorID: 7}, false},
		{"own payment request", UnifiedDocument{DocType: DocPaymentRequest, RequestorID: 7}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy.Classify(&tt.doc, user)
			assert.Equal(t, tt.want, tt.doc.InMyRequest)
		})
	}
}

func TestClassifyMyApprovalRegular(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()

	tests := []struct {
		name string
		doc  UnifiedDocument
		user User
		want bool
	}{
		{
			"approver on non-draft canvass",
			UnifiedDocument{DocType: DocCanvass, Status: "for_approval", Approvers: []int64{5, 7}},
			User{ID: 5, Role: "approver"},
			true,
		},
		{
			"not an approver",
			UnifiedDocument{DocType: DocCanvass, Status: "for_approval", Approvers: []int64{5, 7}},
			User{ID: 9, Role: "approver"},
			false,
		},
		{
			"approver id is not substring-matched",
			UnifiedDocument{DocType: DocCanvass, Status: "for_approval", Approvers: []int64{15, 25}},
			User{ID: 5, Role: "approver"},
			false,
		},
		{
			"draft payment request hidden from approvers",
			UnifiedDocument{DocType: DocPaymentRequest, Status: "pr_draft", Approvers: []int64{5}},
			User{ID: 5, Role: "approver"},
			false,
		},
		{
			"finalized payment request visible to approvers",
			UnifiedDocument{DocType: DocPaymentRequest, Status: "for_approval", Approvers: []int64{5}},
			User{ID: 5, Role: "approver"},
			true,
		},
		{
			"regular user does not get the assigning grant",
			UnifiedDocument{DocType: DocRequisition, Status: "assigning"},
			User{ID: 5, Role: "approver"},
			false,
		},
		{
			"regular user does not get assignment visibility",
			UnifiedDocument{DocType: DocCanvass, Status: "for_approval", AssignedToUserID: ptr(5)},
			User{ID: 5, Role: "approver"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy.Classify(&tt.doc, tt.user)
			assert.Equal(t, tt.want, tt.doc.InMyApproval)
		})
	}
}

func TestClassifyMyApprovalPrivileged(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	staff := User{ID: 11, Role: "purchasing_staff"}

	tests := []struct {
		name string
		doc  UnifiedDocument
		want bool
	}{
		{
			"requisition in assigning visible without approver membership",
			UnifiedDocument{DocType: DocRequisition, Status: "assigning"},
			true,
		},
		{
			"assigned document visible",
			UnifiedDocument{DocType: DocPurchaseOrder, Status: "for_approval", AssignedToUserID: ptr(11)},
			true,
		},
		{
			"assigned to someone else",
			UnifiedDocument{DocType: DocPurchaseOrder, Status: "for_approval", AssignedToUserID: ptr(12)},
			false,
		},
		{
			"approver membership still applies",
			UnifiedDocument{DocType: DocInvoice, Status: "for_approval", Approvers: []int64{11}},
			true,
		},
		{
			"assigning grant is requisition-only",
			UnifiedDocument{DocType: DocCanvass, Status: "assigning"},
			false,
		},
		{
			"draft guard still applies to the approver clause",
			UnifiedDocument{DocType: DocInvoice, Status: "si_draft", Approvers: []int64{11}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy.Classify(&tt.doc, staff)
			assert.Equal(t, tt.want, tt.doc.InMyApproval)
		})
	}
}

func TestBucketsMayOverlap(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	doc := UnifiedDocument{
		DocType:     DocRequisition,
		Status:      "for_approval",
		RequestorID: 5,
		Approvers:   []int64{5},
	}

	policy.Classify(&doc, User{ID: 5, Role: "approver"})
	assert.True(t, doc.InMyRequest)
	assert.True(t, doc.InMyApproval)
}

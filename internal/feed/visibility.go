package feed

// User is the requesting user as decoded from the session token.
type User struct {
	ID   int64
	Role string
}

// RoleClass collapses concrete roles into the two classes the visibility
// rules distinguish.
type RoleClass int

const (
	RoleRegular RoleClass = iota
	RolePrivileged
)

var privilegedRoles = map[string]struct{}{
	"purchasing_staff": {},
	"purchasing_head":  {},
	"admin":            {},
}

// ClassifyRole maps a concrete role token to its rule class.
func ClassifyRole(role string) RoleClass {
	if _, ok := privilegedRoles[role]; ok {
		return RolePrivileged
	}
	return RoleRegular
}

// VisibilityRule is one entry of the declarative rule table: the conditions
// under which a (roleClass, docType) pair grants my_approval membership.
// A document qualifies when any enabled clause matches.
type VisibilityRule struct {
	// ApproverMembership grants visibility via deduplicated approver-set
	// membership, guarded by ExcludeStatuses.
	ApproverMembership bool
	// ExcludeStatuses lists entity-local statuses that never qualify through
	// the approver clause (draft documents have no pending approval).
	ExcludeStatuses []string
	// AssignedMatch grants visibility when the document is assigned to the
	// requesting user.
	AssignedMatch bool
	// GrantStatuses lists statuses visible regardless of approver membership
	// or assignment (e.g. requisitions awaiting assignment for purchasing).
	GrantStatuses []string
}

type ruleKey struct {
	class RoleClass
	doc   DocType
}

// Policy is the immutable role×docType visibility rule table. It is built
// once at startup and shared across concurrent requests.
type Policy struct {
	rules map[ruleKey]VisibilityRule
}

// DefaultPolicy builds the production rule table.
//
// Regular users reach my_approval only through approver-set membership on
// non-draft documents. Privileged purchasing roles additionally see documents
// assigned to them, and requisitions sitting in "assigning".
func DefaultPolicy() *Policy {
	rules := make(map[ruleKey]VisibilityRule, len(AllDocTypes)*2)

	for _, t := range AllDocTypes {
		rules[ruleKey{RoleRegular, t}] = VisibilityRule{
			ApproverMembership: true,
			ExcludeStatuses:    []string{t.DraftStatus()},
		}

		priv := VisibilityRule{
			ApproverMembership: true,
			ExcludeStatuses:    []string{t.DraftStatus()},
			AssignedMatch:      true,
		}
		if t == DocRequisition {
			priv.GrantStatuses = []string{"assigning"}
		}
		rules[ruleKey{RolePrivileged, t}] = priv
	}

	return &Policy{rules: rules}
}

// Rule returns the table entry for (class, docType). The zero rule (grants
// nothing) is returned for unknown document types.
func (p *Policy) Rule(class RoleClass, t DocType) VisibilityRule {
	return p.rules[ruleKey{class, t}]
}

// Classify decides the document's bucket membership for the requesting user
// and stamps the scratch fields. Buckets are not mutually exclusive: a row
// may be in my_request and my_approval at once. Membership in "all" has no
// restriction beyond the active filters, so no flag is needed for it.
func (p *Policy) Classify(d *UnifiedDocument, u User) {
	d.InMyRequest = d.RequestorID == u.ID &&
		(d.DocType == DocRequisition || d.DocType == DocNonRequisition)

	rule := p.Rule(ClassifyRole(u.Role), d.DocType)
	d.InMyApproval = rule.matches(d, u)
}

func (r VisibilityRule) matches(d *UnifiedDocument, u User) bool {
	if r.ApproverMembership && d.HasApprover(u.ID) && !r.statusExcluded(d.Status) {
		return true
	}
	if r.AssignedMatch && d.AssignedToUserID != nil && *d.AssignedToUserID == u.ID {
		return true
	}
	for _, s := range r.GrantStatuses {
		if d.Status == s {
			return true
		}
	}
	return false
}

func (r VisibilityRule) statusExcluded(status string) bool {
	for _, s := range r.ExcludeStatuses {
		if status == s {
			return true
		}
	}
	return false
}

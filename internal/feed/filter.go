package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
)

// Filters is the typed filter block of a feed request (the request's
// filterBy object). Zero values mean "not filtered".
type Filters struct {
	Search     string     `json:"search"`       // free-text ref number search
	DocType    string     `json:"documentType"` // alias token, resolved case/punctuation-insensitively
	Company    string     `json:"company"`      // company name substring
	Department string     `json:"department"`   // department name substring
	Project    string     `json:"project"`      // project name substring
	Requestor  string     `json:"requestor"`    // requestor full-name substring
	Status     StatusList `json:"status"`       // exact status or list of statuses
	CompanyIDs []int64    `json:"companyIds"`   // restrict to these company ids
}

// StatusList accepts either a single JSON string or an array of strings.
type StatusList []string

// UnmarshalJSON implements the string-or-list decoding.
func (s *StatusList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*s = nil
		} else {
			*s = StatusList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("status must be a string or an array of strings")
	}
	*s = StatusList(many)
	return nil
}

// Predicate is one parameterized conjunct. Expr references union columns and
// uses the $? placeholder, renumbered when the predicate set is rendered into
// a query. User input only ever appears in Args.
type Predicate struct {
	Expr string
	Args []interface{}
}

// PredicateSet is the compiled, conjunctive filter list.
type PredicateSet struct {
	preds []Predicate
}

// Empty reports whether no filter predicate is active.
func (s *PredicateSet) Empty() bool { return len(s.preds) == 0 }

func (s *PredicateSet) add(expr string, args ...interface{}) {
	s.preds = append(s.preds, Predicate{Expr: expr, Args: args})
}

// Render joins the predicates with AND, replacing each $? with the next
// positional placeholder starting at startIdx. It returns the rendered
// clause (without a WHERE keyword), the flattened args, and the next free
// placeholder index. An empty set renders to "TRUE".
func (s *PredicateSet) Render(startIdx int) (string, []interface{}, int) {
	if len(s.preds) == 0 {
		return "TRUE", nil, startIdx
	}

	var (
		parts = make([]string, 0, len(s.preds))
		args  []interface{}
		n     = startIdx
	)
	for _, p := range s.preds {
		expr := p.Expr
		for range p.Args {
			expr = strings.Replace(expr, "$?", fmt.Sprintf("$%d", n), 1)
			n++
		}
		parts = append(parts, expr)
		args = append(args, p.Args...)
	}
	return strings.Join(parts, " AND "), args, n
}

// Compile turns the filter block into a parameterized predicate set. It never
// touches storage and rejects nothing except structurally invalid input;
// unknown doc type aliases degrade to a substring match on the literal type
// token rather than failing.
func (f Filters) Compile() (*PredicateSet, error) {
	set := &PredicateSet{}

	if v := strings.TrimSpace(f.Search); v != "" {
		set.add("ref_number ILIKE $?", contains(v))
	}

	if v := strings.TrimSpace(f.DocType); v != "" {
		if t, ok := ResolveDocTypeAlias(v); ok {
			set.add("doc_type = $?", string(t))
		} else {
			set.add("doc_type ILIKE $?", contains(v))
		}
	}

	if v := strings.TrimSpace(f.Company); v != "" {
		set.add("company_name ILIKE $?", contains(v))
	}
	if v := strings.TrimSpace(f.Department); v != "" {
		set.add("department_name ILIKE $?", contains(v))
	}
	if v := strings.TrimSpace(f.Project); v != "" {
		set.add("project_name ILIKE $?", contains(v))
	}
	if v := strings.TrimSpace(f.Requestor); v != "" {
		set.add("requestor_name ILIKE $?", contains(v))
	}

	if len(f.Status) > 0 {
		for _, st := range f.Status {
			if strings.TrimSpace(st) == "" {
				return nil, apperrors.InvalidInput("filterBy.status", "status values must be non-empty")
			}
		}
		set.add("status = ANY($?)", []string(f.Status))
	}

	if len(f.CompanyIDs) > 0 {
		set.add("company_id = ANY($?)", f.CompanyIDs)
	}

	return set, nil
}

func contains(v string) string {
	return "%" + escapeLike(v) + "%"
}

// escapeLike neutralizes LIKE metacharacters in user input so a literal "%"
// or "_" matches itself.
func escapeLike(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "%", `\%`)
	v = strings.ReplaceAll(v, "_", `\_`)
	return v
}

// Matcher returns the in-memory equivalent of Compile's predicate set, used
// by the snapshot path. The two must accept exactly the same documents.
func (f Filters) Matcher() (func(*UnifiedDocument) bool, error) {
	type check func(*UnifiedDocument) bool
	var checks []check

	if v := strings.TrimSpace(f.Search); v != "" {
		needle := strings.ToLower(v)
		checks = append(checks, func(d *UnifiedDocument) bool {
			return strings.Contains(strings.ToLower(d.RefNumber), needle)
		})
	}

	if v := strings.TrimSpace(f.DocType); v != "" {
		if t, ok := ResolveDocTypeAlias(v); ok {
			checks = append(checks, func(d *UnifiedDocument) bool { return d.DocType == t })
		} else {
			needle := strings.ToLower(v)
			checks = append(checks, func(d *UnifiedDocument) bool {
				return strings.Contains(strings.ToLower(string(d.DocType)), needle)
			})
		}
	}

	substr := func(get func(*UnifiedDocument) string, v string) check {
		needle := strings.ToLower(strings.TrimSpace(v))
		return func(d *UnifiedDocument) bool {
			return strings.Contains(strings.ToLower(get(d)), needle)
		}
	}
	if f.Company != "" {
		checks = append(checks, substr(func(d *UnifiedDocument) string { return d.CompanyName }, f.Company))
	}
	if f.Department != "" {
		checks = append(checks, substr(func(d *UnifiedDocument) string { return d.DepartmentName }, f.Department))
	}
	if f.Project != "" {
		checks = append(checks, substr(func(d *UnifiedDocument) string { return d.ProjectName }, f.Project))
	}
	if f.Requestor != "" {
		checks = append(checks, substr(func(d *UnifiedDocument) string { return d.RequestorName }, f.Requestor))
	}

	if len(f.Status) > 0 {
		want := make(map[string]struct{}, len(f.Status))
		for _, st := range f.Status {
			if strings.TrimSpace(st) == "" {
				return nil, apperrors.InvalidInput("filterBy.status", "status values must be non-empty")
			}
			want[st] = struct{}{}
		}
		checks = append(checks, func(d *UnifiedDocument) bool {
			_, ok := want[d.Status]
			return ok
		})
	}

	if len(f.CompanyIDs) > 0 {
		want := make(map[int64]struct{}, len(f.CompanyIDs))
		for _, id := range f.CompanyIDs {
			want[id] = struct{}{}
		}
		checks = append(checks, func(d *UnifiedDocument) bool {
			_, ok := want[d.CompanyID]
			return ok
		})
	}

	return func(d *UnifiedDocument) bool {
		for _, c := range checks {
			if !c(d) {
				return false
			}
		}
		return true
	}, nil
}

package feed

import (
	"sort"
	"time"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
)

// Snapshot is one materialized generation of the union builder's output:
// every unified document inside the snapshot window, unclassified (bucket
// membership depends on the requesting user, so it is computed per query).
// A snapshot is immutable once built; the refresher publishes a new
// generation rather than mutating one in place.
type Snapshot struct {
	Generation uint64
	BuiltAt    time.Time
	Window     Window
	Docs       []UnifiedDocument
}

// Covers reports whether the snapshot can serve a query over window w.
func (s *Snapshot) Covers(w Window) bool {
	return s != nil && s.Window.Covers(w)
}

// Evaluate produces one page from the snapshot with the same semantics as
// the live windowed query: filter, classify, order, count, page.
func (s *Snapshot) Evaluate(q *Query, policy *Policy) (*Result, error) {
	match, err := q.Filters.Matcher()
	if err != nil {
		return nil, apperrors.At(err, apperrors.StageFilterCompile)
	}

	// Filter + classify. Documents are copied before classification so the
	// shared snapshot is never written to.
	matched := make([]UnifiedDocument, 0, 64)
	for i := range s.Docs {
		if !q.Window.Contains(s.Docs[i].UpdatedAt) {
			continue
		}
		if !match(&s.Docs[i]) {
			continue
		}
		doc := s.Docs[i]
		policy.Classify(&doc, q.User)
		matched = append(matched, doc)
	}

	res := &Result{AllTotal: int64(len(matched))}
	for i := range matched {
		if matched[i].InMyRequest {
			res.MyRequestsTotal++
		}
		if matched[i].InMyApproval {
			res.MyApprovalsTotal++
		}
	}

	// Restrict to the requested bucket, then order and page.
	page := matched[:0:0]
	for i := range matched {
		if q.InBucket(&matched[i]) {
			page = append(page, matched[i])
		}
	}

	sort.SliceStable(page, func(i, j int) bool {
		return q.Order.Less(&page[i], &page[j])
	})

	lo := q.Offset()
	if lo > len(page) {
		lo = len(page)
	}
	hi := lo + q.Limit
	if hi > len(page) {
		hi = len(page)
	}
	res.Rows = append([]UnifiedDocument(nil), page[lo:hi]...)

	return res, nil
}

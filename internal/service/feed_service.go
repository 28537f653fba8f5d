package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
	"github.com/provant-erp/be-prs-dashboard/internal/client"
	"github.com/provant-erp/be-prs-dashboard/internal/config"
	"github.com/provant-erp/be-prs-dashboard/internal/feed"
)

// FeedStore is the storage surface the service drives. Implemented by
// repository.FeedRepository.
type FeedStore interface {
	FetchPage(ctx context.Context, q *feed.Query) (*feed.Result, error)
	FetchPageLegacy(ctx context.Context, q *feed.Query) (*feed.Result, error)
	CountOrphans(ctx context.Context, w feed.Window) (map[string]int64, error)
}

// SnapshotProvider exposes the refresher's current generation. Nil disables
// snapshot serving.
type SnapshotProvider interface {
	Current() *feed.Snapshot
}

// Serving paths, as logged and published per request.
const (
	PathOptimized = "optimized"
	PathFallback  = "fallback"
	PathSnapshot  = "snapshot"
)

// FeedService orchestrates one feed request: validate, compile, execute
// (snapshot, optimized, or one-shot fallback), project.
type FeedService struct {
	store     FeedStore
	snapshots SnapshotProvider
	events    *client.FeedEventPublisher
	policy    *feed.Policy
	cfg       config.FeedConfig
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger

	lastAudit atomic.Int64 // unix nanos of the last orphan audit
}

// orphanAuditInterval bounds how often the background integrity audit runs.
// The audit is a diagnostic; one pass per interval is plenty, and running it
// per request would double the query volume under load.
const orphanAuditInterval = time.Minute

// NewFeedService creates a new FeedService. snapshots and events may be nil.
func NewFeedService(
	store FeedStore,
	snapshots SnapshotProvider,
	events *client.FeedEventPublisher,
	policy *feed.Policy,
	cfg config.FeedConfig,
	log zerolog.Logger,
) *FeedService {
	loc, err := time.LoadLocation(cfg.TimeLocation)
	if err != nil {
		log.Warn().Err(err).Str("location", cfg.TimeLocation).Msg("Unknown time location, using UTC")
		loc = time.UTC
	}

	return &FeedService{
		store:     store,
		snapshots: snapshots,
		events:    events,
		policy:    policy,
		cfg:       cfg,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// FeedRequest is the upstream request contract.
type FeedRequest struct {
	Limit         int           `json:"limit"`
	Page          int           `json:"page"`
	Order         string        `json:"order"`
	FilterBy      feed.Filters  `json:"filterBy"`
	RequestType   string        `json:"requestType"`
	TimeRange     string        `json:"timeRange"`
	UserFromToken UserFromToken `json:"userFromToken"`
}

// UserFromToken is the requesting user as decoded upstream.
type UserFromToken struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// GetFeed serves one page of the unified document feed.
func (s *FeedService) GetFeed(ctx context.Context, req *FeedRequest) (*FeedResponse, error) {
	start := s.now()

	q, err := s.buildQuery(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	path, res, err := s.execute(ctx, q)
	if err != nil {
		return nil, err
	}

	resp := Project(q, res)

	elapsed := s.now().Sub(start)
	s.log.Info().
		Str("path", path).
		Str("request_type", string(q.RequestType)).
		Int64("user_id", q.User.ID).
		Int("rows", len(res.Rows)).
		Int64("all_total", res.AllTotal).
		Dur("elapsed", elapsed).
		Msg("Feed page served")
	s.events.PublishQueryServed(path, string(q.RequestType), q.User.ID, elapsed, len(res.Rows))

	if path != PathSnapshot && s.shouldAudit() {
		go s.auditIntegrity(q.Window)
	}

	return resp, nil
}

// buildQuery validates the request and resolves it into an executable query.
// All validation failures happen here, before any storage work.
func (s *FeedService) buildQuery(req *FeedRequest) (*feed.Query, error) {
	if req.UserFromToken.ID <= 0 {
		return nil, apperrors.InvalidInput("userFromToken.id", "missing or invalid user id")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	page := req.Page
	if page < 1 {
		page = 1
	}

	order, err := feed.ParseOrder(req.Order)
	if err != nil {
		return nil, err
	}

	requestType, err := feed.ParseRequestType(req.RequestType)
	if err != nil {
		return nil, err
	}

	window, err := feed.ResolveWindow(req.TimeRange, s.now(), s.loc, s.cfg.DefaultTimeRange)
	if err != nil {
		return nil, err
	}

	if _, err := req.FilterBy.Compile(); err != nil {
		return nil, apperrors.At(err, apperrors.StageFilterCompile)
	}

	return &feed.Query{
		Window:      window,
		Filters:     req.FilterBy,
		Order:       order,
		Limit:       limit,
		Page:        page,
		User:        feed.User{ID: req.UserFromToken.ID, Role: req.UserFromToken.Role},
		RequestType: requestType,
	}, nil
}

// execute picks the serving path. A covering snapshot wins; otherwise the
// optimized query runs, with exactly one fallback to the legacy multi-query
// path on execution failure. Timeouts surface immediately with no fallback.
func (s *FeedService) execute(ctx context.Context, q *feed.Query) (string, *feed.Result, error) {
	if s.snapshots != nil {
		if snap := s.snapshots.Current(); snap.Covers(q.Window) {
			res, err := snap.Evaluate(q, s.policy)
			if err == nil {
				return PathSnapshot, res, nil
			}
			s.log.Warn().Err(err).Uint64("generation", snap.Generation).
				Msg("Snapshot evaluation failed, serving live")
		}
	}

	res, err := s.store.FetchPage(ctx, q)
	if err == nil {
		return PathOptimized, res, nil
	}
	if !apperrors.IsQueryExecution(err) {
		return "", nil, err
	}

	s.log.Error().Err(err).Msg("Optimized feed query failed, attempting legacy fallback")
	res, err = s.store.FetchPageLegacy(ctx, q)
	if err != nil {
		return "", nil, err
	}
	return PathFallback, res, nil
}

// shouldAudit claims the current audit interval. At most one caller wins per
// interval; the compare-and-swap loses harmlessly under contention.
func (s *FeedService) shouldAudit() bool {
	now := s.now().UnixNano()
	last := s.lastAudit.Load()
	if now-last < orphanAuditInterval.Nanoseconds() {
		return false
	}
	return s.lastAudit.CompareAndSwap(last, now)
}

// auditIntegrity logs orphaned sub-documents in the served window. Orphans
// are dropped by the union's inner joins; the feed stays correct, but the
// data problem should not stay invisible.
func (s *FeedService) auditIntegrity(w feed.Window) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := s.store.CountOrphans(ctx, w)
	if err != nil {
		s.log.Debug().Err(err).Msg("Orphan audit failed")
		return
	}
	for table, n := range counts {
		s.log.Warn().
			Str("table", table).
			Int64("orphans", n).
			Time("window_start", w.Start).
			Time("window_end", w.End).
			Msg("Data integrity: sub-documents without an owning requisition dropped from feed")
	}
}

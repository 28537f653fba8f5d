package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
	"github.com/provant-erp/be-prs-dashboard/internal/client"
	"github.com/provant-erp/be-prs-dashboard/internal/config"
	"github.com/provant-erp/be-prs-dashboard/internal/feed"
)

// SnapshotSource provides the union builder's full output for a window.
// Implemented by repository.SnapshotRepository.
type SnapshotSource interface {
	FetchWindow(ctx context.Context, w feed.Window) ([]feed.UnifiedDocument, error)
}

// SnapshotRefresher periodically materializes the union builder's output and
// publishes it with an atomic pointer swap. A new generation is built
// entirely off to the side; readers observe either the complete previous
// generation or the complete new one, never a mix. Refreshes never run
// concurrently: a tick that arrives while a refresh is in flight is skipped.
// On failure the previous generation keeps serving.
type SnapshotRefresher struct {
	source   SnapshotSource
	interval time.Duration
	rangeTok string
	loc      *time.Location
	events   *client.FeedEventPublisher
	log      zerolog.Logger
	now      func() time.Time

	generation atomic.Uint64
	current    atomic.Pointer[feed.Snapshot]
	refreshing sync.Mutex
}

// NewSnapshotRefresher creates a refresher over the configured snapshot
// window. events may be nil.
func NewSnapshotRefresher(
	source SnapshotSource,
	cfg config.FeedConfig,
	events *client.FeedEventPublisher,
	log zerolog.Logger,
) *SnapshotRefresher {
	loc, err := time.LoadLocation(cfg.TimeLocation)
	if err != nil {
		loc = time.UTC
	}
	return &SnapshotRefresher{
		source:   source,
		interval: cfg.SnapshotRefreshInterval,
		rangeTok: cfg.SnapshotTimeRange,
		loc:      loc,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Current returns the latest published snapshot, or nil before the first
// successful refresh.
func (r *SnapshotRefresher) Current() *feed.Snapshot {
	return r.current.Load()
}

// Refresh builds and publishes one snapshot generation. When a refresh is
// already in flight the call is a no-op.
func (r *SnapshotRefresher) Refresh(ctx context.Context) error {
	if !r.refreshing.TryLock() {
		r.log.Debug().Msg("Snapshot refresh already in flight, skipping")
		return nil
	}
	defer r.refreshing.Unlock()

	start := r.now()
	gen := r.generation.Add(1)

	window, err := feed.ResolveWindow(r.rangeTok, start, r.loc, r.rangeTok)
	if err != nil {
		return apperrors.At(err, apperrors.StageSnapshotRefresh)
	}
	// Requests resolve their window end at request time, which is always
	// after the build; a snapshot ending at the build instant would never
	// cover them. Extending the end by one refresh interval keeps the
	// generation serving until its successor lands. Documents updated inside
	// that gap appear at the next generation, so staleness is bounded by the
	// interval.
	window.End = window.End.Add(r.interval)

	docs, err := r.source.FetchWindow(ctx, window)
	if err != nil {
		err = apperrors.At(err, apperrors.StageSnapshotRefresh)
		elapsed := r.now().Sub(start)
		r.log.Error().Err(err).Uint64("generation", gen).Dur("elapsed", elapsed).
			Msg("Snapshot refresh failed, previous generation keeps serving")
		r.events.PublishSnapshotRefreshFailed(gen, elapsed, err)
		return err
	}

	snap := &feed.Snapshot{
		Generation: gen,
		BuiltAt:    start,
		Window:     window,
		Docs:       docs,
	}
	r.current.Store(snap)

	elapsed := r.now().Sub(start)
	r.log.Info().
		Uint64("generation", gen).
		Int("docs", len(docs)).
		Dur("elapsed", elapsed).
		Msg("Snapshot generation published")
	r.events.PublishSnapshotRefreshed(gen, len(docs), elapsed)

	return nil
}

// Run refreshes immediately and then on every interval tick until ctx is
// canceled. Refresh failures are logged, not propagated; the loop keeps
// going.
func (r *SnapshotRefresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Msg("Initial snapshot refresh failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Snapshot refresher stopped")
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
	"github.com/provant-erp/be-prs-dashboard/internal/config"
	"github.com/provant-erp/be-prs-dashboard/internal/feed"
)

type stubSource struct {
	mu    sync.Mutex
	calls atomic.Int64
	docs  []feed.UnifiedDocument
	err   error
	// gate, when set, blocks FetchWindow until closed.
	gate chan struct{}
}

func (s *stubSource) FetchWindow(ctx context.Context, _ feed.Window) ([]feed.UnifiedDocument, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs, s.err
}

func (s *stubSource) set(docs []feed.UnifiedDocument, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs, s.err = docs, err
}

func refresherConfig(interval time.Duration) config.FeedConfig {
	return config.FeedConfig{
		SnapshotEnabled:         true,
		SnapshotTimeRange:       "6_months",
		SnapshotRefreshInterval: interval,
		TimeLocation:            "UTC",
	}
}

func TestRefresherPublishesGenerations(t *testing.T) {
	t.Parallel()

	source := &stubSource{docs: []feed.UnifiedDocument{{ID: 1, DocType: feed.DocRequisition}}}
	r := NewSnapshotRefresher(source, refresherConfig(time.Minute), nil, zerolog.Nop())

	assert.Nil(t, r.Current(), "no generation before the first refresh")

	require.NoError(t, r.Refresh(context.Background()))
	first := r.Current()
	require.NotNil(t, first)
	assert.Equal(t, uint64(1), first.Generation)
	assert.Len(t, first.Docs, 1)
	assert.True(t, first.Window.Start.Before(first.Window.End))

	source.set([]feed.UnifiedDocument{{ID: 1}, {ID: 2}}, nil)
	require.NoError(t, r.Refresh(context.Background()))
	second := r.Current()
	assert.Equal(t, uint64(2), second.Generation)
	assert.Len(t, second.Docs, 2)
}

func TestRefresherWindowCoversRequestsAfterBuild(t *testing.T) {
	t.Parallel()

	source := &stubSource{docs: []feed.UnifiedDocument{{ID: 1}}}
	r := NewSnapshotRefresher(source, refresherConfig(time.Minute), nil, zerolog.Nop())

	buildTime := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return buildTime }

	require.NoError(t, r.Refresh(context.Background()))
	snap := r.Current()
	require.NotNil(t, snap)

	// A named-range request resolves its window end at request time, after
	// the build. The generation must keep covering until its successor lands.
	for _, lag := range []time.Duration{time.Second, 30 * time.Second, time.Minute} {
		reqWindow, err := feed.ResolveWindow("6_months", buildTime.Add(lag), time.UTC, "6_months")
		require.NoError(t, err)
		assert.True(t, snap.Covers(reqWindow), "snapshot must cover a request %s after build", lag)
	}

	// Beyond one refresh interval the generation is stale and stops covering.
	lateWindow, err := feed.ResolveWindow("6_months", buildTime.Add(2*time.Minute), time.UTC, "6_months")
	require.NoError(t, err)
	assert.False(t, snap.Covers(lateWindow))
}

func TestRefresherKeepsPreviousGenerationOnFailure(t *testing.T) {
	t.Parallel()

	source := &stubSource{docs: []feed.UnifiedDocument{{ID: 1}}}
	r := NewSnapshotRefresher(source, refresherConfig(time.Minute), nil, zerolog.Nop())

	require.NoError(t, r.Refresh(context.Background()))
	published := r.Current()

	source.set(nil, errors.New("connection reset"))
	err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.StageSnapshotRefresh, apperrors.StageOf(err))

	// Readers still see the last good generation, untouched.
	assert.Same(t, published, r.Current())
}

func TestRefresherSkipsConcurrentRefresh(t *testing.T) {
	t.Parallel()

	source := &stubSource{gate: make(chan struct{})}
	r := NewSnapshotRefresher(source, refresherConfig(time.Minute), nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- r.Refresh(context.Background()) }()

	// Wait for the in-flight refresh to reach the source.
	require.Eventually(t, func() bool { return source.calls.Load() == 1 },
		time.Second, time.Millisecond)

	// A second call while the first is in flight is a no-op.
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, int64(1), source.calls.Load())

	close(source.gate)
	require.NoError(t, <-done)
	require.NotNil(t, r.Current())
}

func TestRefresherRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	source := &stubSource{docs: []feed.UnifiedDocument{{ID: 1}}}
	r := NewSnapshotRefresher(source, refresherConfig(5*time.Millisecond), nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	// The initial refresh plus at least one tick.
	require.Eventually(t, func() bool { return source.calls.Load() >= 2 },
		time.Second, time.Millisecond)
	require.NotNil(t, r.Current())

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

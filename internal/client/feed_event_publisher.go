package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// FeedEventPublisher publishes operational feed events to NATS for the
// monitoring stack. Two concerns ride on it: making the serving path visible
// (an optimized-query regression silently absorbed by the fallback would
// otherwise be invisible) and tracking snapshot refresh outcomes.
//
// Subject convention: feed.query.served, feed.snapshot.refreshed,
// feed.snapshot.refresh_failed.
//
// All publish operations are non-fatal — errors are logged but never
// propagated, so event bus trouble never interrupts a dashboard request.
// A nil publisher or a nil connection disables publishing entirely.
type FeedEventPublisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// QueryServedEvent is the JSON schema of feed.query.served.
type QueryServedEvent struct {
	Path        string `json:"path"` // optimized | fallback | snapshot
	RequestType string `json:"request_type,omitempty"`
	UserID      int64  `json:"user_id"`
	DurationMS  int64  `json:"duration_ms"`
	RowCount    int    `json:"row_count"`
}

// SnapshotEvent is the JSON schema of the feed.snapshot.* subjects.
type SnapshotEvent struct {
	Generation uint64 `json:"generation"`
	DocCount   int    `json:"doc_count,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewFeedEventPublisher creates a publisher backed by the given connection.
func NewFeedEventPublisher(nc *nats.Conn, log zerolog.Logger) *FeedEventPublisher {
	return &FeedEventPublisher{nc: nc, log: log}
}

// PublishQueryServed records which path served a feed request.
func (p *FeedEventPublisher) PublishQueryServed(path, requestType string, userID int64, duration time.Duration, rowCount int) {
	p.publish("feed.query.served", QueryServedEvent{
		Path:        path,
		RequestType: requestType,
		UserID:      userID,
		DurationMS:  duration.Milliseconds(),
		RowCount:    rowCount,
	})
}

// PublishSnapshotRefreshed records a successful snapshot generation swap.
func (p *FeedEventPublisher) PublishSnapshotRefreshed(generation uint64, docCount int, duration time.Duration) {
	p.publish("feed.snapshot.refreshed", SnapshotEvent{
		Generation: generation,
		DocCount:   docCount,
		DurationMS: duration.Milliseconds(),
	})
}

// PublishSnapshotRefreshFailed records a failed refresh; the previous
// generation keeps serving.
func (p *FeedEventPublisher) PublishSnapshotRefreshFailed(generation uint64, duration time.Duration, refreshErr error) {
	evt := SnapshotEvent{Generation: generation, DurationMS: duration.Milliseconds()}
	if refreshErr != nil {
		evt.Error = refreshErr.Error()
	}
	p.publish("feed.snapshot.refresh_failed", evt)
}

func (p *FeedEventPublisher) publish(subject string, event interface{}) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("subject", subject).Msg("feed events: failed to marshal event")
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).Str("subject", subject).Msg("feed events: failed to publish (non-fatal)")
		return
	}

	p.log.Debug().Str("subject", subject).Msg("feed events: event published")
}

// Connect dials NATS with sane reconnect settings.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Package events publishes build-finished notifications so other systems can
// pick up fresh artifacts without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/appneta/tbonebuild/internal/logfields"
	"github.com/appneta/tbonebuild/internal/pipeline"
)

// SubjectBuildFinished is the subject every build result is published on.
const SubjectBuildFinished = "tbonebuild.build.finished"

// BuildFinished is the JSON payload of a build notification.
type BuildFinished struct {
	ID            string    `json:"id"`
	Mode          string    `json:"mode"`
	Optimizer     string    `json:"optimizer"`
	Outcome       string    `json:"outcome"`
	Output        string    `json:"output,omitempty"`
	ArtifactBytes int       `json:"artifact_bytes"`
	Revision      string    `json:"revision,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// FromReport builds the notification for a finished report.
func FromReport(r *pipeline.BuildReport) BuildFinished {
	ev := BuildFinished{
		ID:            r.ID,
		Mode:          r.Mode,
		Optimizer:     r.Optimizer,
		Outcome:       string(r.Outcome),
		Output:        r.Output,
		ArtifactBytes: r.ArtifactBytes,
		Revision:      r.Revision,
		DurationMS:    r.End.Sub(r.Start).Milliseconds(),
		Timestamp:     r.End,
	}
	if len(r.Errors) > 0 {
		ev.Error = r.Errors[0].Error()
	}
	return ev
}

// Publisher delivers build notifications.
type Publisher interface {
	Publish(ctx context.Context, ev BuildFinished) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BuildFinished) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }

// NATSPublisher publishes on a core NATS connection.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("tbonebuild"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Debug("Connected to NATS", logfields.URL(url))
	return &NATSPublisher{conn: conn, subject: SubjectBuildFinished}, nil
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, ev BuildFinished) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published build event", logfields.BuildID(ev.ID), slog.String("subject", p.subject))
	return nil
}

// Close drains nothing; pending messages were flushed by Publish.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// Observer publishes the report when a build completes. Publication errors
// are logged and never change the build result.
type Observer struct {
	pipeline.NoopObserver
	Publisher Publisher
	Timeout   time.Duration
}

func (o Observer) OnBuildComplete(report *pipeline.BuildReport) {
	if o.Publisher == nil {
		return
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.Publisher.Publish(ctx, FromReport(report)); err != nil {
		slog.Warn("Failed to publish build event", logfields.BuildID(report.ID), logfields.Error(err))
	}
}

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appneta/tbonebuild/internal/pipeline"
)

type recordingPublisher struct {
	events []BuildFinished
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev BuildFinished) error {
	r.events = append(r.events, ev)
	return r.err
}
func (r *recordingPublisher) Close() error { return nil }

func finishedReport() *pipeline.BuildReport {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &pipeline.BuildReport{
		ID:            "b-1",
		Mode:          "release",
		Optimizer:     "closure",
		Output:        "dist/tbone.min.js",
		ArtifactBytes: 1234,
		Revision:      "deadbeef",
		Start:         start,
		End:           start.Add(1500 * time.Millisecond),
		Outcome:       pipeline.OutcomeFailed,
		Errors:        []error{errors.New("fatal stage optimize: boom")},
	}
}

func TestFromReport(t *testing.T) {
	ev := FromReport(finishedReport())
	assert.Equal(t, "b-1", ev.ID)
	assert.Equal(t, "failed", ev.Outcome)
	assert.Equal(t, int64(1500), ev.DurationMS)
	assert.Equal(t, "fatal stage optimize: boom", ev.Error)
	assert.Equal(t, 1234, ev.ArtifactBytes)
	assert.Equal(t, "deadbeef", ev.Revision)
}

func TestObserver_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	Observer{Publisher: pub}.OnBuildComplete(finishedReport())
	require.Len(t, pub.events, 1)
	assert.Equal(t, "b-1", pub.events[0].ID)
}

func TestObserver_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("no responders")}
	assert.NotPanics(t, func() {
		Observer{Publisher: pub}.OnBuildComplete(finishedReport())
	})
	assert.Len(t, pub.events, 1)
}

func TestObserver_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() { Observer{}.OnBuildComplete(finishedReport()) })
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.Publish(context.Background(), BuildFinished{}))
	require.NoError(t, p.Close())
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1")
	require.Error(t, err)
}

var _ pipeline.BuildObserver = Observer{}

package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringwatch/ringwatch/internal/config"
	"github.com/ringwatch/ringwatch/internal/ring"
	"github.com/ringwatch/ringwatch/internal/sink"
)

// stubSink records points in memory and fails writes on demand.
type stubSink struct {
	mu       sync.Mutex
	points   []sink.Point
	failOn   func(p sink.Point) bool
	flushErr error
	flushed  int
}

func (s *stubSink) Write(_ context.Context, p sink.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil && s.failOn(p) {
		return errors.New("stub write failure")
	}
	s.points = append(s.points, p)
	return nil
}

func (s *stubSink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed++
	return s.flushErr
}

func (s *stubSink) pointsFor(metric string) []sink.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sink.Point
	for _, p := range s.points {
		if p.Metric == metric {
			out = append(out, p)
		}
	}
	return out
}

func (s *stubSink) metricsForTarget(target string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, p := range s.points {
		if p.Target == target {
			out[p.Metric]++
		}
	}
	return out
}

var testTarget = config.Target{Name: "cass-01", Address: "10.0.0.1"}

func codedRecords(t *testing.T, raw string) []ring.CodedNodeStatus {
	t.Helper()
	res := ring.Parse(raw)
	require.NotEmpty(t, res.Records)
	return ring.EncodeAll(res.Records)
}

func TestEmitAllPoints(t *testing.T) {
	s := &stubSink{}
	e := NewEmitter(s, "cassandra")

	records := codedRecords(t,
		"10.0.0.2 dc1 rack1 Up Normal 10 GB 50.00% 1\n"+
			"10.0.0.3 dc1 rack2 Down Leaving 30 GB 50.00% 2\n")

	outcome := e.Emit(context.Background(), testTarget, records)

	// per record: status, state, health, load_bytes, load_ratio, ownership
	assert.Equal(t, 12, outcome.Attempted)
	assert.Equal(t, 12, outcome.Succeeded)
	assert.Equal(t, 0, outcome.Failed)
	assert.Empty(t, outcome.Errors)

	statusPoints := s.pointsFor("cassandra_node_status")
	require.Len(t, statusPoints, 2)
	assert.Equal(t, float64(1), statusPoints[0].Value)
	assert.Equal(t, float64(0), statusPoints[1].Value)
	assert.Equal(t, "10.0.0.1", statusPoints[0].Target)
	assert.Equal(t, "10.0.0.2", statusPoints[0].Labels["address"])

	statePoints := s.pointsFor("cassandra_node_state")
	require.Len(t, statePoints, 2)
	assert.Equal(t, float64(1), statePoints[0].Value)
	assert.Equal(t, float64(2), statePoints[1].Value)

	healthPoints := s.pointsFor("cassandra_node_health")
	require.Len(t, healthPoints, 2)
	assert.Equal(t, float64(1), healthPoints[0].Value)
	assert.Equal(t, float64(0), healthPoints[1].Value)

	ratioPoints := s.pointsFor("cassandra_node_load_ratio")
	require.Len(t, ratioPoints, 2)
	assert.InDelta(t, 0.25, ratioPoints[0].Value, 1e-9)
	assert.InDelta(t, 0.75, ratioPoints[1].Value, 1e-9)
}

func TestEmitSkipsUnparsableDescriptiveColumns(t *testing.T) {
	s := &stubSink{}
	e := NewEmitter(s, "cassandra")

	records := codedRecords(t, "10.0.0.2 dc1 rack1 Up Normal ? ? 1\n")
	outcome := e.Emit(context.Background(), testTarget, records)

	// only status, state and health
	assert.Equal(t, 3, outcome.Attempted)
	assert.Equal(t, 3, outcome.Succeeded)
	assert.Empty(t, s.pointsFor("cassandra_node_load_bytes"))
	assert.Empty(t, s.pointsFor("cassandra_node_ownership_percent"))
}

func TestEmitPartialFailure(t *testing.T) {
	s := &stubSink{
		failOn: func(p sink.Point) bool {
			return p.Metric == "cassandra_node_state" && p.Labels["address"] == "10.0.0.3"
		},
	}
	e := NewEmitter(s, "cassandra")

	records := codedRecords(t,
		"10.0.0.2 dc1 rack1 Up Normal 10 GB 50.00% 1\n"+
			"10.0.0.3 dc1 rack2 Up Normal 10 GB 50.00% 2\n")

	outcome := e.Emit(context.Background(), testTarget, records)

	assert.Equal(t, outcome.Attempted-1, outcome.Succeeded)
	assert.Equal(t, 1, outcome.Failed)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0].Error(), "stub write failure")

	// the failure did not stop later points for either record
	assert.Len(t, s.pointsFor("cassandra_node_health"), 2)
}

func TestEmitSingleCaptureInstant(t *testing.T) {
	s := &stubSink{}
	e := NewEmitter(s, "cassandra")
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	records := codedRecords(t,
		"10.0.0.2 dc1 rack1 Up Normal 10 GB 50.00% 1\n"+
			"10.0.0.3 dc1 rack2 Up Normal 10 GB 50.00% 2\n")
	e.Emit(context.Background(), testTarget, records)

	for _, p := range s.points {
		assert.True(t, p.Timestamp.Equal(fixed), "point %s timestamp = %v", p.Metric, p.Timestamp)
	}
}

func TestEmitReachability(t *testing.T) {
	s := &stubSink{}
	e := NewEmitter(s, "cassandra")

	require.NoError(t, e.EmitReachability(context.Background(), testTarget, 1, ""))
	require.NoError(t, e.EmitReachability(context.Background(), testTarget, 0, "ping_failed"))

	points := s.pointsFor("cassandra_reporter_reachability")
	require.Len(t, points, 2)
	assert.Equal(t, float64(1), points[0].Value)
	assert.Equal(t, "success", points[0].Labels["failure_reason"])
	assert.Equal(t, float64(0), points[1].Value)
	assert.Equal(t, "ping_failed", points[1].Labels["failure_reason"])

	s.failOn = func(sink.Point) bool { return true }
	assert.Error(t, e.EmitReachability(context.Background(), testTarget, 1, ""))
}

func TestEmitEmptyRecords(t *testing.T) {
	s := &stubSink{}
	e := NewEmitter(s, "cassandra")

	outcome := e.Emit(context.Background(), testTarget, nil)
	assert.Zero(t, outcome.Attempted)
	assert.Empty(t, s.points)
}

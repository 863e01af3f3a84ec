package sink

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoint(metric, target string, value float64) Point {
	return Point{
		Metric:    metric,
		Target:    target,
		Labels:    map[string]string{"address": "10.0.0.2"},
		Value:     value,
		Timestamp: time.Now(),
	}
}

func TestPushSinkWrite(t *testing.T) {
	s := NewPushSink("http://gateway.invalid:9091", "ringwatch-test")
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, testPoint("cassandra_node_status", "10.0.0.1", 1)))
	require.NoError(t, s.Write(ctx, testPoint("cassandra_node_status", "10.0.0.9", 0)))
	require.NoError(t, s.Write(ctx, testPoint("cassandra_node_state", "10.0.0.1", 2)))

	families, err := s.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)

	fam := s.families["cassandra_node_status"]
	require.NotNil(t, fam)
	gauge, err := fam.vec.GetMetricWith(map[string]string{"target": "10.0.0.1", "address": "10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(gauge))
}

func TestPushSinkWriteOverwritesSeries(t *testing.T) {
	s := NewPushSink("http://gateway.invalid:9091", "ringwatch-test")
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, testPoint("cassandra_node_status", "10.0.0.1", 0)))
	require.NoError(t, s.Write(ctx, testPoint("cassandra_node_status", "10.0.0.1", 1)))

	gauge, err := s.families["cassandra_node_status"].vec.GetMetricWith(
		map[string]string{"target": "10.0.0.1", "address": "10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(gauge))
}

func TestPushSinkWriteErrors(t *testing.T) {
	s := NewPushSink("http://gateway.invalid:9091", "ringwatch-test")
	ctx := context.Background()

	t.Run("invalid metric name", func(t *testing.T) {
		err := s.Write(ctx, Point{Metric: "bad metric name", Target: "10.0.0.1", Value: 1})
		assert.Error(t, err)
	})

	t.Run("missing target", func(t *testing.T) {
		err := s.Write(ctx, Point{Metric: "cassandra_node_status", Value: 1})
		assert.Error(t, err)
	})

	t.Run("reserved label", func(t *testing.T) {
		err := s.Write(ctx, Point{
			Metric: "cassandra_node_status",
			Target: "10.0.0.1",
			Labels: map[string]string{"target": "other"},
			Value:  1,
		})
		assert.Error(t, err)
	})

	t.Run("label set conflict is per-point", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, testPoint("cassandra_node_health", "10.0.0.1", 1)))

		err := s.Write(ctx, Point{
			Metric: "cassandra_node_health",
			Target: "10.0.0.1",
			Labels: map[string]string{"rack": "rack1"},
			Value:  1,
		})
		assert.Error(t, err)

		// the established series still accepts writes
		assert.NoError(t, s.Write(ctx, testPoint("cassandra_node_health", "10.0.0.1", 0)))
	})
}

func TestPushSinkFlushEmpty(t *testing.T) {
	s := NewPushSink("http://gateway.invalid:9091", "ringwatch-test")
	// nothing accumulated: no network attempt, no error
	assert.NoError(t, s.Flush(context.Background()))
}

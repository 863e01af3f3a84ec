// Package sink abstracts the time-series backend that run results are
// emitted to. The pipeline only needs Write and Flush; everything else
// about the backend is opaque.
package sink

import (
	"context"
	"time"
)

// Point is one typed metric sample for one target node.
type Point struct {
	Metric    string            // full metric name, e.g. "cassandra_node_status"
	Target    string            // the reporter node this observation came from
	Labels    map[string]string // additional labels (observed address, dc, rack, ...)
	Value     float64
	Timestamp time.Time
}

// Sink accepts metric points. Write failures are per-point and must
// not poison subsequent writes; Flush submits whatever accumulated.
// Implementations must tolerate concurrent Write calls.
type Sink interface {
	Write(ctx context.Context, p Point) error
	Flush(ctx context.Context) error
}

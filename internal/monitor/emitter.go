package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ringwatch/ringwatch/internal/config"
	monerrors "github.com/ringwatch/ringwatch/internal/errors"
	"github.com/ringwatch/ringwatch/internal/ring"
	"github.com/ringwatch/ringwatch/internal/sink"
)

// Metric name suffixes appended to the configured prefix.
const (
	suffixNodeStatus           = "_node_status"
	suffixNodeState            = "_node_state"
	suffixNodeHealth           = "_node_health"
	suffixNodeLoadBytes        = "_node_load_bytes"
	suffixNodeOwnershipPercent = "_node_ownership_percent"
	suffixNodeLoadRatio        = "_node_load_ratio"
	suffixReachability         = "_reporter_reachability"
)

// Outcome reports emission accounting for one target: best-effort,
// partial-success semantics.
type Outcome struct {
	Attempted int
	Succeeded int
	Failed    int
	Errors    []error
}

// Emitter converts coded records into sink points.
type Emitter struct {
	sink   sink.Sink
	prefix string
	now    func() time.Time
}

// NewEmitter builds an emitter writing metrics under the given prefix.
func NewEmitter(s sink.Sink, prefix string) *Emitter {
	return &Emitter{sink: s, prefix: prefix, now: time.Now}
}

// Emit writes the points for every record, stamped with one capture
// instant. A failed write is recorded and emission continues with the
// remaining points.
func (e *Emitter) Emit(ctx context.Context, target config.Target, records []ring.CodedNodeStatus) Outcome {
	var outcome Outcome
	ts := e.now()
	totalLoad := totalLoadBytes(records)

	for _, rec := range records {
		labels := map[string]string{
			"address":    rec.Address,
			"datacenter": rec.Datacenter,
			"rack":       rec.Rack,
		}

		e.write(ctx, &outcome, target, sink.Point{
			Metric:    e.prefix + suffixNodeStatus,
			Target:    target.Address,
			Labels:    labels,
			Value:     float64(rec.StatusCode),
			Timestamp: ts,
		})
		e.write(ctx, &outcome, target, sink.Point{
			Metric:    e.prefix + suffixNodeState,
			Target:    target.Address,
			Labels:    labels,
			Value:     float64(rec.StateCode),
			Timestamp: ts,
		})
		e.write(ctx, &outcome, target, sink.Point{
			Metric:    e.prefix + suffixNodeHealth,
			Target:    target.Address,
			Labels:    labels,
			Value:     float64(rec.Health),
			Timestamp: ts,
		})

		if bytes, ok := ring.LoadBytes(rec.Load); ok {
			e.write(ctx, &outcome, target, sink.Point{
				Metric:    e.prefix + suffixNodeLoadBytes,
				Target:    target.Address,
				Labels:    labels,
				Value:     float64(bytes),
				Timestamp: ts,
			})
			if totalLoad > 0 {
				e.write(ctx, &outcome, target, sink.Point{
					Metric:    e.prefix + suffixNodeLoadRatio,
					Target:    target.Address,
					Labels:    labels,
					Value:     float64(bytes) / float64(totalLoad),
					Timestamp: ts,
				})
			}
		} else if rec.Load != "" {
			log.Debug().
				Str("target", target.Name).
				Str("address", rec.Address).
				Str("load", rec.Load).
				Msg("Unparsable load column; skipping load metrics")
		}

		if percent, ok := ring.OwnsPercent(rec.Owns); ok {
			e.write(ctx, &outcome, target, sink.Point{
				Metric:    e.prefix + suffixNodeOwnershipPercent,
				Target:    target.Address,
				Labels:    labels,
				Value:     percent,
				Timestamp: ts,
			})
		}
	}

	return outcome
}

// EmitReachability writes the reporter reachability point for a
// target: 1 when the remote command ran, 0 with a failure reason when
// it did not.
func (e *Emitter) EmitReachability(ctx context.Context, target config.Target, reachable int, reason string) error {
	if reason == "" {
		reason = "success"
	}
	point := sink.Point{
		Metric:    e.prefix + suffixReachability,
		Target:    target.Address,
		Labels:    map[string]string{"failure_reason": reason},
		Value:     float64(reachable),
		Timestamp: e.now(),
	}
	if err := e.sink.Write(ctx, point); err != nil {
		return monerrors.WrapEmissionError("write_reachability", target.Address, err)
	}
	return nil
}

func (e *Emitter) write(ctx context.Context, outcome *Outcome, target config.Target, p sink.Point) {
	outcome.Attempted++
	if err := e.sink.Write(ctx, p); err != nil {
		outcome.Failed++
		outcome.Errors = append(outcome.Errors,
			monerrors.WrapEmissionError("write_point", target.Address, err))
		log.Warn().
			Str("target", target.Name).
			Str("metric", p.Metric).
			Err(err).
			Msg("Sink write failed; continuing with remaining points")
		return
	}
	outcome.Succeeded++
}

func totalLoadBytes(records []ring.CodedNodeStatus) int64 {
	var total int64
	for _, rec := range records {
		if bytes, ok := ring.LoadBytes(rec.Load); ok {
			total += bytes
		}
	}
	return total
}

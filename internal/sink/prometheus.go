package sink

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// reservedTargetLabel carries Point.Target on every sample.
const reservedTargetLabel = "target"

// PushSink accumulates points as gauges in a private registry and
// submits them to a Prometheus Pushgateway on Flush. This is the
// batched-submission model: Write is cheap and local, the network
// round trip happens once per run.
type PushSink struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	families map[string]*metricFamily
	pusher   *push.Pusher
}

type metricFamily struct {
	labelNames []string
	vec        *prometheus.GaugeVec
}

// NewPushSink builds a sink pushing to the given Pushgateway URL under
// the given job name.
func NewPushSink(gatewayURL, job string) *PushSink {
	registry := prometheus.NewRegistry()
	return &PushSink{
		registry: registry,
		families: make(map[string]*metricFamily),
		pusher:   push.New(gatewayURL, job).Gatherer(registry),
	}
}

// Registry exposes the sink's registry so run instrumentation can ride
// the same push.
func (s *PushSink) Registry() *prometheus.Registry {
	return s.registry
}

// Write records one point. The first point seen for a metric fixes its
// label set; later points with a different label set fail individually
// without affecting other points.
func (s *PushSink) Write(_ context.Context, p Point) error {
	if !metricNamePattern.MatchString(p.Metric) {
		return fmt.Errorf("invalid metric name %q", p.Metric)
	}
	if p.Target == "" {
		return fmt.Errorf("point for metric %s has no target", p.Metric)
	}

	labels := prometheus.Labels{reservedTargetLabel: p.Target}
	for k, v := range p.Labels {
		if k == reservedTargetLabel {
			return fmt.Errorf("label %q is reserved", reservedTargetLabel)
		}
		labels[k] = v
	}

	fam, err := s.family(p.Metric, labelNames(labels))
	if err != nil {
		return err
	}

	gauge, err := fam.vec.GetMetricWith(labels)
	if err != nil {
		return fmt.Errorf("resolve series for %s: %w", p.Metric, err)
	}
	gauge.Set(p.Value)
	return nil
}

// Flush pushes every accumulated series to the gateway. The gateway
// stamps samples at scrape time; Point timestamps are advisory only.
func (s *PushSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	series := len(s.families)
	s.mu.Unlock()

	if series == 0 {
		log.Debug().Msg("No time series accumulated; skipping push")
		return nil
	}
	if err := s.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push to gateway: %w", err)
	}
	return nil
}

func (s *PushSink) family(metric string, names []string) (*metricFamily, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fam, ok := s.families[metric]; ok {
		if !equalNames(fam.labelNames, names) {
			return nil, fmt.Errorf("metric %s: label set %v conflicts with established %v",
				metric, names, fam.labelNames)
		}
		return fam, nil
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: metric,
		Help: "Ring monitor observation.",
	}, names)
	if err := s.registry.Register(vec); err != nil {
		return nil, fmt.Errorf("register metric %s: %w", metric, err)
	}

	fam := &metricFamily{labelNames: names, vec: vec}
	s.families[metric] = fam
	return fam, nil
}

func labelNames(labels prometheus.Labels) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ringwatch/ringwatch/internal/config"
	"github.com/ringwatch/ringwatch/internal/remote"
	"github.com/ringwatch/ringwatch/internal/ring"
	"github.com/ringwatch/ringwatch/internal/sink"
)

// TargetState tracks a target through its processing lifecycle.
type TargetState string

const (
	StatePending   TargetState = "pending"
	StateAcquiring TargetState = "acquiring"
	StateParsing   TargetState = "parsing"
	StateEmitting  TargetState = "emitting"
	StateDone      TargetState = "done"
)

// TargetOutcome is the terminal result for one target.
type TargetOutcome struct {
	Target   config.Target
	Success  bool
	Err      error // acquisition error, or total emission failure
	Records  int
	Warnings int
	Emit     Outcome
	Duration time.Duration
}

// RunResult aggregates one invocation. Outcomes keep config order.
type RunResult struct {
	RunID    string
	Outcomes []TargetOutcome
	FlushErr error
}

// Failed reports whether the process should exit non-zero: any target
// failed, or the accumulated points never reached the backend.
func (r RunResult) Failed() bool {
	if r.FlushErr != nil {
		return true
	}
	for _, outcome := range r.Outcomes {
		if !outcome.Success {
			return true
		}
	}
	return false
}

// Coordinator sequences acquire, parse, map and emit for every
// configured target. Targets are independent; one target's failure
// never blocks the others. The coordinator holds no state across
// runs.
type Coordinator struct {
	cfg     *config.Config
	exec    remote.Executor
	pinger  remote.Pinger
	sink    sink.Sink
	emitter *Emitter
	metrics *RunMetrics
}

// New builds a coordinator over the given collaborators. metrics may
// be nil.
func New(cfg *config.Config, exec remote.Executor, pinger remote.Pinger, s sink.Sink, metrics *RunMetrics) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		exec:    exec,
		pinger:  pinger,
		sink:    s,
		emitter: NewEmitter(s, cfg.MetricPrefix),
		metrics: metrics,
	}
}

// Run processes every configured target and flushes the sink. It
// always returns a complete RunResult; errors are embedded per
// target.
func (c *Coordinator) Run(ctx context.Context) RunResult {
	result := RunResult{
		RunID:    uuid.NewString(),
		Outcomes: make([]TargetOutcome, len(c.cfg.Targets)),
	}
	logger := log.With().Str("run_id", result.RunID).Logger()

	logger.Info().
		Int("targets", len(c.cfg.Targets)).
		Int("concurrency", c.cfg.Concurrency).
		Msg("Starting ring monitoring run")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, target := range c.cfg.Targets {
		i, target := i, target
		g.Go(func() error {
			outcome := c.processTarget(gctx, logger, target)
			result.Outcomes[i] = outcome
			c.metrics.RecordTarget(outcome)
			return nil
		})
	}
	// workers never return errors; outcomes carry the failures
	_ = g.Wait()

	if err := c.sink.Flush(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to flush metric points to sink")
		result.FlushErr = err
	}

	logger.Info().
		Int("succeeded", countSuccesses(result.Outcomes)).
		Int("failed", len(result.Outcomes)-countSuccesses(result.Outcomes)).
		Msg("Ring monitoring run completed")
	return result
}

func (c *Coordinator) processTarget(ctx context.Context, logger zerolog.Logger, target config.Target) TargetOutcome {
	outcome := TargetOutcome{Target: target}
	start := time.Now()
	defer func() {
		outcome.Duration = clampDuration(time.Since(start))
	}()

	tlog := logger.With().Str("target", target.Name).Str("address", target.Address).Logger()

	state := StatePending
	advance := func(next TargetState) {
		state = next
		tlog.Trace().Str("state", string(state)).Msg("Target state transition")
	}

	advance(StateAcquiring)
	cmdCtx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout())
	raw, err := c.exec.Execute(cmdCtx, target.Address, c.cfg.NodetoolPathFor(target)+" ring")
	cancel()
	if err != nil {
		reason := c.refineFailureReason(ctx, target, err)
		tlog.Error().Err(err).Str("failure_reason", reason).Msg("Acquisition failed; target marked failed")
		if remErr := c.emitter.EmitReachability(ctx, target, 0, reason); remErr != nil {
			tlog.Warn().Err(remErr).Msg("Failed to record reachability point")
		}
		outcome.Err = err
		return outcome
	}
	if remErr := c.emitter.EmitReachability(ctx, target, 1, ""); remErr != nil {
		tlog.Warn().Err(remErr).Msg("Failed to record reachability point")
	}

	advance(StateParsing)
	parsed := ring.Parse(raw)
	outcome.Records = len(parsed.Records)
	outcome.Warnings = len(parsed.Warnings)
	for _, warning := range parsed.Warnings {
		tlog.Warn().
			Int("line", warning.Line).
			Str("reason", warning.Reason).
			Str("text", warning.Text).
			Msg("Skipped unparsable ring output line")
	}
	if len(parsed.Records) == 0 {
		if strings.TrimSpace(raw) != "" {
			tlog.Warn().Int("output_bytes", len(raw)).Msg("No node records parsed from non-empty ring output")
		}
		// nothing to emit, nothing expected to succeed
		outcome.Success = true
		return outcome
	}

	advance(StateEmitting)
	coded := ring.EncodeAll(parsed.Records)
	outcome.Emit = c.emitter.Emit(ctx, target, coded)

	if outcome.Emit.Attempted > 0 && outcome.Emit.Succeeded == 0 {
		tlog.Error().
			Int("attempted", outcome.Emit.Attempted).
			Msg("Every point write failed; target marked failed")
		outcome.Err = outcome.Emit.Errors[0]
		return outcome
	}

	advance(StateDone)
	outcome.Success = true
	tlog.Info().
		Str("state", string(state)).
		Int("records", outcome.Records).
		Int("points_succeeded", outcome.Emit.Succeeded).
		Int("points_failed", outcome.Emit.Failed).
		Msg("Target processed")
	return outcome
}

// refineFailureReason distinguishes a dead node from an ssh or tool
// problem by falling back to a ping check.
func (c *Coordinator) refineFailureReason(ctx context.Context, target config.Target, err error) string {
	if c.pinger == nil {
		return err.Error()
	}
	if !c.pinger.Ping(ctx, target.Address) {
		return "ping_failed"
	}
	return err.Error()
}

func countSuccesses(outcomes []TargetOutcome) int {
	n := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			n++
		}
	}
	return n
}

// Package execwatch watches a running engine call for completion. The
// engine's future handle alone cannot distinguish "still computing" from
// "parked in the interactive debugger" from "finished but the completion
// signal was lost", so the watchdog combines a fast done-poll with a
// periodic liveness probe to classify what the engine is actually doing.
package execwatch

import (
	"context"
	"fmt"
	"time"

	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/djoshea/imatlab/src/imatlab/internal/clock"
	"github.com/djoshea/imatlab/src/imatlab/internal/engine"
)

//go:generate mockgen -source=execwatch.go -destination=execwatchmock/mock_execwatch.go -package=execwatchmock

const _configKey = "watchdog"

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(New),
)

// Outcome classifies how a watched execution ended.
type Outcome int

const (
	// OutcomeCompleted means the future finished on its own.
	OutcomeCompleted Outcome = iota
	// OutcomeCompletedAfterDebug means the future finished after the
	// engine spent time in its interactive debugger.
	OutcomeCompletedAfterDebug
	// OutcomeRecoveredStuckFuture means the engine was idle while the
	// future never completed; the watchdog cancelled it and treats the
	// execution as done.
	OutcomeRecoveredStuckFuture
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCompletedAfterDebug:
		return "completed_after_debug"
	case OutcomeRecoveredStuckFuture:
		return "recovered_stuck_future"
	}
	return "unknown"
}

// Result describes how a watched execution ended.
type Result struct {
	Outcome Outcome
	// DesktopShown is set when the watchdog popped the engine desktop so
	// the user could interact with the debugger.
	DesktopShown bool
	// Value is the future's result when one was produced.
	Value interface{}
}

// Watchdog supervises one in-flight engine call until it can be declared
// finished.
type Watchdog interface {
	// Await blocks until the future completes, the engine is caught idle
	// with a stuck future, or ctx is cancelled. Execution faults raised by
	// the watched code are returned as errors; everything else resolves to
	// a Result.
	Await(ctx context.Context, eng engine.Engine, future engine.Future) (Result, error)
}

// Config tunes the watchdog's cadence. Every inner engine call is bounded;
// the watch itself has no outer deadline because user code may legitimately
// run for hours.
type Config struct {
	PollIntervalMs   int `yaml:"pollIntervalMs"`
	ProbeIntervalMs  int `yaml:"probeIntervalMs"`
	ProbeTimeoutMs   int `yaml:"probeTimeoutMs"`
	ResultTimeoutSec int `yaml:"resultTimeoutSec"`
}

// Params defines the dependencies of this module.
type Params struct {
	fx.In

	Config config.Provider
	Logger *zap.SugaredLogger
	Clock  clock.Clock
	Stats  tally.Scope
}

type watchdog struct {
	cfg    Config
	logger *zap.SugaredLogger
	clock  clock.Clock
	stats  watchdogStats
}

type watchdogStats struct {
	probes          tally.Counter
	probeFailures   tally.Counter
	stuckRecoveries tally.Counter
	desktopShown    tally.Counter
}

// New creates a Watchdog from the "watchdog" configuration block.
func New(p Params) (Watchdog, error) {
	cfg := Config{
		PollIntervalMs:   100,
		ProbeIntervalMs:  2000,
		ProbeTimeoutMs:   500,
		ResultTimeoutSec: 5,
	}
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("populating %s config: %w", _configKey, err)
	}

	scope := p.Stats.SubScope("watchdog")
	return &watchdog{
		cfg:    cfg,
		logger: p.Logger,
		clock:  p.Clock,
		stats: watchdogStats{
			probes:          scope.Counter("probes"),
			probeFailures:   scope.Counter("probe_failures"),
			stuckRecoveries: scope.Counter("stuck_recoveries"),
			desktopShown:    scope.Counter("desktop_shown"),
		},
	}, nil
}

func (w *watchdog) Await(ctx context.Context, eng engine.Engine, future engine.Future) (Result, error) {
	pollInterval := time.Duration(w.cfg.PollIntervalMs) * time.Millisecond
	probeInterval := time.Duration(w.cfg.ProbeIntervalMs) * time.Millisecond

	desktopShown := false
	debugSeen := false
	lastProbe := w.clock.Now()

	for {
		if future.Done() {
			return w.resolve(future, debugSeen, desktopShown)
		}

		if w.clock.Since(lastProbe) >= probeInterval {
			lastProbe = w.clock.Now()
			if !w.probe(eng) {
				// The engine did not answer: it is busy running user code.
				w.stats.probeFailures.Inc(1)
			} else {
				// The engine is responsive, so the future's silence is
				// suspicious. Re-check done first: the call may have
				// finished while the probe was in flight.
				if future.Done() {
					continue
				}

				inDebug, err := eng.IsInDebugMode()
				switch {
				case err != nil:
					w.logger.Debugw("Debug mode query failed, assuming busy", "error", err)
				case inDebug:
					debugSeen = true
					if !desktopShown {
						desktopShown = true
						w.stats.desktopShown.Inc(1)
						w.logger.Info("Engine entered the debugger, opening the desktop")
						if _, err := eng.CallAsync("desktop"); err != nil {
							w.logger.Warnw("Unable to open the engine desktop", "error", err)
						}
					}
				default:
					// Responsive, not debugging, not done: the future is
					// stuck. Cancel it and declare the execution finished.
					w.stats.stuckRecoveries.Inc(1)
					w.logger.Warn("Engine is idle but the call never completed, recovering")
					if err := future.Cancel(); err != nil {
						w.logger.Debugw("Cancel of stuck call failed", "error", err)
					}
					return Result{Outcome: OutcomeRecoveredStuckFuture, DesktopShown: desktopShown}, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		w.clock.Sleep(pollInterval)
	}
}

// resolve retrieves the finished future's value. A connection error at this
// point is stale noise from a closed debug session, not a failure: the call
// is already known to be done.
func (w *watchdog) resolve(future engine.Future, debugSeen, desktopShown bool) (Result, error) {
	outcome := OutcomeCompleted
	if debugSeen {
		outcome = OutcomeCompletedAfterDebug
	}
	result := Result{Outcome: outcome, DesktopShown: desktopShown}

	value, err := future.Result(time.Duration(w.cfg.ResultTimeoutSec) * time.Second)
	if err != nil {
		if engine.IsConnectionError(err) {
			w.logger.Debugw("Ignoring stale connection error from completed call", "error", err)
			return result, nil
		}
		return result, err
	}
	result.Value = value
	return result, nil
}

// probe issues a trivial bounded eval to test whether the engine can answer.
func (w *watchdog) probe(eng engine.Engine) bool {
	w.stats.probes.Inc(1)
	f, err := eng.CallAsync("eval", "1")
	if err != nil {
		return false
	}
	if _, err := f.Result(time.Duration(w.cfg.ProbeTimeoutMs) * time.Millisecond); err != nil {
		return false
	}
	return true
}

// Package maintenance runs periodic background upkeep coordinated across
// cooperating instances: each cycle one instance wins a coordination token
// and walks a list of independent work units, isolating failures and
// timeouts per unit. Losing coordination is steady-state, not an error.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	werrors "github.com/langfork/warden/errors"
	"github.com/langfork/warden/logging"
	"github.com/langfork/warden/metrics"
)

var tracer = otel.Tracer("github.com/langfork/warden/maintenance")

const (
	defaultUnitTimeout = 30 * time.Second
	releaseTimeout     = 5 * time.Second
)

// Unit is one independently-scoped piece of maintenance work. Run receives
// a context bounded by the unit's timeout and should stop when it is done.
type Unit struct {
	Name    string
	Timeout time.Duration // 0 uses the runner default
	Run     func(ctx context.Context) error
}

// Config configures a Runner.
type Config struct {
	// Interval between cycles. Must be positive.
	Interval time.Duration
	// UnitTimeout bounds units that do not set their own. Defaults to 30s.
	UnitTimeout time.Duration
	Units       []Unit
	// Coordinator elects the instance that runs each cycle. Defaults to
	// Nop (always wins), for single-instance deployments.
	Coordinator Coordinator
	Logger      logging.Logger
}

// CycleStatus records the outcome of the most recent cycle.
type CycleStatus struct {
	Ran         bool // false when coordination was lost and the cycle skipped
	Succeeded   int
	Failed      int
	CompletedAt time.Time
}

// Runner is the coordinated periodic task. Construct it once at process
// start, Start it, and Stop it at shutdown; there is no ambient singleton.
type Runner struct {
	interval    time.Duration
	unitTimeout time.Duration
	units       []Unit
	coord       Coordinator
	log         logging.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	kick    chan struct{}
	last    CycleStatus
}

// NewRunner validates cfg and returns a stopped Runner. A non-positive
// interval is a programming error and fails fast.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Interval <= 0 {
		return nil, werrors.ErrInvalidInterval
	}
	if cfg.UnitTimeout <= 0 {
		cfg.UnitTimeout = defaultUnitTimeout
	}
	if cfg.Coordinator == nil {
		cfg.Coordinator = Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop{}
	}
	return &Runner{
		interval:    cfg.Interval,
		unitTimeout: cfg.UnitTimeout,
		units:       cfg.Units,
		coord:       cfg.Coordinator,
		log:         cfg.Logger,
	}, nil
}

// Start schedules the sleep-then-execute loop. It is idempotent: a second
// call while the loop is live is a no-op, so concurrent callers produce
// exactly one loop.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.kick = make(chan struct{}, 1)
	r.running = true
	go r.loop(ctx, r.done, r.kick)
	r.log.Info("maintenance runner started", logging.Fields{"interval": r.interval.String(), "units": len(r.units)})
}

// Stop cancels the in-flight sleep or cycle and waits for the loop to
// acknowledge before returning. It is idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.log.Info("maintenance runner stopped", nil)
}

// RunNow queues an immediate cycle, for administrative use. It does not
// wait for the cycle to finish and is a no-op when the runner is stopped.
func (r *Runner) RunNow() {
	r.mu.Lock()
	kick, running := r.kick, r.running
	r.mu.Unlock()
	if !running {
		return
	}
	select {
	case kick <- struct{}{}:
	default: // a cycle is already queued
	}
}

// Running reports whether the loop is live.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status returns the outcome of the most recent cycle.
func (r *Runner) Status() CycleStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) loop(ctx context.Context, done chan struct{}, kick chan struct{}) {
	defer close(done)
	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		if ctx.Err() != nil {
			return
		}
		r.runCycle(ctx)
		timer.Reset(r.interval)
	}
}

// runCycle attempts coordination and, when won, walks every unit under its
// own timeout. The token is released unconditionally afterward.
func (r *Runner) runCycle(ctx context.Context) {
	cycle := uuid.NewString()[:8]
	ctx, span := tracer.Start(ctx, "maintenance.cycle")
	defer span.End()

	acquired, err := r.coord.Acquire(ctx)
	switch {
	case err != nil:
		// Infrastructure trouble while coordinating: doing the work twice
		// beats doing it zero times, so proceed without the token.
		r.log.Warn("coordination attempt failed, proceeding anyway",
			logging.Fields{"cycle": cycle, "error": err.Error()})
	case !acquired:
		r.log.Debug("coordination token held elsewhere, skipping cycle",
			logging.Fields{"cycle": cycle})
		metrics.CyclesSkipped.Inc()
		span.SetAttributes(attribute.Bool("warden.cycle.skipped", true))
		r.record(CycleStatus{Ran: false, CompletedAt: time.Now()})
		return
	}
	if acquired {
		defer func() {
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := r.coord.Release(rctx); err != nil {
				r.log.Warn("coordination token release failed",
					logging.Fields{"cycle": cycle, "error": err.Error()})
			}
		}()
	}

	status := CycleStatus{Ran: true}
	for _, u := range r.units {
		if ctx.Err() != nil {
			break
		}
		if err := r.runUnit(ctx, u); err != nil {
			status.Failed++
			metrics.UnitFailures.Inc()
			if errors.Is(err, werrors.ErrTimeout) {
				metrics.UnitTimeouts.Inc()
			}
			r.log.Error("maintenance unit failed",
				logging.Fields{"cycle": cycle, "unit": u.Name, "error": err.Error()})
			continue
		}
		status.Succeeded++
	}
	status.CompletedAt = time.Now()
	metrics.CyclesRun.Inc()
	span.SetAttributes(
		attribute.Int("warden.cycle.succeeded", status.Succeeded),
		attribute.Int("warden.cycle.failed", status.Failed),
	)
	r.log.Info("maintenance cycle complete",
		logging.Fields{"cycle": cycle, "succeeded": status.Succeeded, "failed": status.Failed})
	r.record(status)
}

// runUnit executes one unit under its own timeout. A unit that ignores its
// context is abandoned when the timeout fires; its goroutine is left to
// drain so siblings are unaffected.
func (r *Runner) runUnit(ctx context.Context, u Unit) error {
	timeout := u.Timeout
	if timeout <= 0 {
		timeout = r.unitTimeout
	}
	uctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				errCh <- fmt.Errorf("panic: %v", p)
			}
		}()
		errCh <- u.Run(uctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-uctx.Done():
		if errors.Is(uctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: unit %q exceeded %s", werrors.ErrTimeout, u.Name, timeout)
		}
		return uctx.Err()
	}
}

func (r *Runner) record(s CycleStatus) {
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()
}

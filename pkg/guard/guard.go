package guard

import (
	"context"
	"errors"
	"time"

	"tgreach/pkg/logger"
	"tgreach/pkg/telegram"
)

// Outcome is the closed classification every guarded call collapses to.
type Outcome int

const (
	// OK means the call succeeded and its result is valid.
	OK Outcome = iota
	// Skipped means the call produced no result this cycle: rate-limit
	// wait, unclassified failure, or cancellation. Callers move on.
	Skipped
	// Blocked means the target's privacy settings forbid the action.
	// The target is unreachable for this action but not deactivated.
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Skipped:
		return "skipped"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Guard wraps remote operations with failure classification. A severe
// abuse-flood signal flushes state, suspends all activity for the
// configured cool-down, then retries the call; everything else resolves
// in a single attempt.
type Guard struct {
	log      logger.Logger
	coolDown time.Duration
	flush    func() error
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customizes a Guard.
type Option func(*Guard)

// WithSleeper replaces the cool-down sleeper, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Guard) { g.sleep = sleep }
}

// New creates a Guard. flush persists campaign state and runs before any
// severe cool-down, so recovery never loses prior history.
func New(log logger.Logger, coolDown time.Duration, flush func() error, opts ...Option) *Guard {
	g := &Guard{
		log:      log,
		coolDown: coolDown,
		flush:    flush,
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do executes fn under the guard's failure classification.
func Do[T any](g *Guard, ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, Outcome) {
	var zero T
	for {
		if ctx.Err() != nil {
			return zero, Skipped
		}

		v, err := fn(ctx)
		if err == nil {
			return v, OK
		}

		if fw, ok := telegram.AsFloodWait(err); ok {
			g.log.WarnWithFields("rate limited, abandoning for this cycle", map[string]interface{}{
				"op":          name,
				"retry_after": fw.RetryAfter,
			})
			return zero, Skipped
		}

		if errors.Is(err, telegram.ErrPeerFlood) {
			g.log.WithField("op", name).Error("abuse-flood signal, suspending all activity")
			if ferr := g.flush(); ferr != nil {
				g.log.WithError(ferr).Error("state flush before cool-down failed")
			}
			g.log.WithField("cool_down", g.coolDown).Error("entering cool-down")
			if serr := g.sleep(ctx, g.coolDown); serr != nil {
				return zero, Skipped
			}
			continue
		}

		if errors.Is(err, telegram.ErrPrivacy) {
			g.log.WithField("op", name).Debug("target unreachable due to privacy settings")
			return zero, Blocked
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, Skipped
		}

		g.log.WithError(err).WithField("op", name).Error("unclassified failure")
		return zero, Skipped
	}
}

// Run executes a result-less operation under the guard.
func (g *Guard) Run(ctx context.Context, name string, fn func(ctx context.Context) error) Outcome {
	_, outcome := Do(g, ctx, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return outcome
}

// Sleep is a context-aware sleep. It returns the context error when the
// wait is cut short.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

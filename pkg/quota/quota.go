package quota

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tgreach/pkg/config"
)

// Controller supplies durations and "may I proceed" checks to the
// scraper and outreach drivers. It never calls the network itself.
type Controller struct {
	quota  config.QuotaConfig
	delays config.DelayConfig
	hourly *rate.Limiter

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRand replaces the random source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// New creates a Controller from the quota and delay sections.
func New(quota config.QuotaConfig, delays config.DelayConfig, opts ...Option) *Controller {
	c := &Controller{
		quota:  quota,
		delays: delays,
		hourly: rate.NewLimiter(rate.Every(time.Hour/time.Duration(quota.DMHourly)), quota.DMHourly),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DailyAllows reports whether another greet send fits under the daily
// quota given the current counter.
func (c *Controller) DailyAllows(invitesToday int) bool {
	return invitesToday < c.quota.DailyQuota
}

// DailyQuota returns the configured daily ceiling.
func (c *Controller) DailyQuota() int {
	return c.quota.DailyQuota
}

// SessionLimit returns the default per-session send cap.
func (c *Controller) SessionLimit() int {
	return c.quota.SessionLimit
}

// ScrapeLimit returns the per-run discovery cap.
func (c *Controller) ScrapeLimit() int {
	return c.quota.ScrapeLimit
}

// ScrapeWindow returns how many recent posts a scrape run inspects.
func (c *Controller) ScrapeWindow() int {
	return c.quota.ScrapeWindow
}

// ReserveSend blocks until the hourly send budget admits another DM, or
// the context is cancelled.
func (c *Controller) ReserveSend(ctx context.Context) error {
	return c.hourly.Wait(ctx)
}

// Between draws a uniform duration from the range.
func (c *Controller) Between(r config.Range) time.Duration {
	return c.uniform(r.Min.Std(), r.Max.Std())
}

// UserPause separates two greet sends.
func (c *Controller) UserPause() time.Duration {
	return c.Between(c.delays.UserPause)
}

// ScrapeReplyDelay paces individual commentator steps: twice the base
// scrape draw.
func (c *Controller) ScrapeReplyDelay() time.Duration {
	return 2 * c.Between(c.delays.ScrapeStep)
}

// ScrapePostDelay paces fully processed posts: ten times the base draw.
func (c *Controller) ScrapePostDelay() time.Duration {
	return 10 * c.Between(c.delays.ScrapeStep)
}

// PreGreetRead simulates reading a candidate's history before greeting.
func (c *Controller) PreGreetRead() time.Duration {
	return c.Between(c.delays.PreGreetRead)
}

// PreInviteRead simulates reading an inbound reply before inviting.
func (c *Controller) PreInviteRead() time.Duration {
	return c.Between(c.delays.PreInviteRead)
}

// InviteTyping is the typing-indicator time before an invitation.
func (c *Controller) InviteTyping() time.Duration {
	return c.Between(c.delays.InviteTyping)
}

// LongPause separates two orchestrator cycles.
func (c *Controller) LongPause() time.Duration {
	return c.Between(c.delays.LongPause)
}

// SevereCoolDown is the fixed suspension after an abuse-flood signal.
func (c *Controller) SevereCoolDown() time.Duration {
	return c.delays.SevereCoolDown.Std()
}

// TypingTime models plausible composition time for a message:
// proportional to its length with bounded randomness, floored at a
// short minimum.
func (c *Controller) TypingTime(msg string) time.Duration {
	perChar := c.uniformFloat(0.05, 0.12)
	typed := time.Duration(float64(len(msg)) * perChar * float64(time.Second))
	floor := c.uniform(1*time.Second, 3*time.Second)
	if typed < floor {
		return floor
	}
	return typed
}

// Chance reports true with probability p.
func (c *Controller) Chance(p float64) bool {
	return c.uniformFloat(0, 1) < p
}

// Intn draws a uniform int from [0, n).
func (c *Controller) Intn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Intn(n)
}

// Uniform draws a uniform duration from [min, max].
func (c *Controller) Uniform(min, max time.Duration) time.Duration {
	return c.uniform(min, max)
}

func (c *Controller) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return min + time.Duration(c.rng.Int63n(int64(max-min)+1))
}

func (c *Controller) uniformFloat(min, max float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return min + c.rng.Float64()*(max-min)
}

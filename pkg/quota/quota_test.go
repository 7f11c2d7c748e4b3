package quota

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"tgreach/pkg/config"
)

func testController(t *testing.T) *Controller {
	t.Helper()
	cfg := config.DefaultConfig()
	return New(cfg.Quota, cfg.Delays, WithRand(rand.New(rand.NewSource(1))))
}

func TestDailyAllows(t *testing.T) {
	c := testController(t)

	if !c.DailyAllows(0) {
		t.Error("Expected sends to be allowed at zero")
	}
	if !c.DailyAllows(14) {
		t.Error("Expected sends to be allowed just under the quota")
	}
	if c.DailyAllows(15) {
		t.Error("Expected sends to be denied at the quota")
	}
	if c.DailyAllows(100) {
		t.Error("Expected sends to be denied above the quota")
	}
}

func TestRangesStayWithinBounds(t *testing.T) {
	c := testController(t)

	tests := []struct {
		name     string
		draw     func() time.Duration
		min, max time.Duration
	}{
		{"user pause", c.UserPause, 500 * time.Second, 1000 * time.Second},
		{"scrape reply", c.ScrapeReplyDelay, 20 * time.Second, 30 * time.Second},
		{"scrape post", c.ScrapePostDelay, 100 * time.Second, 150 * time.Second},
		{"pre-greet read", c.PreGreetRead, 5 * time.Second, 20 * time.Second},
		{"pre-invite read", c.PreInviteRead, 5 * time.Second, 15 * time.Second},
		{"invite typing", c.InviteTyping, 1 * time.Second, 2 * time.Second},
		{"long pause", c.LongPause, 30 * time.Minute, 60 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				d := tt.draw()
				if d < tt.min || d > tt.max {
					t.Fatalf("Draw %s outside [%s, %s]", d, tt.min, tt.max)
				}
			}
		})
	}
}

func TestTypingTime(t *testing.T) {
	c := testController(t)

	// Short messages are floored at 1-3s
	for i := 0; i < 100; i++ {
		d := c.TypingTime("hi")
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("Short-message typing time %s outside floor range", d)
		}
	}

	// A long message scales with length: 200 chars at 0.05-0.12 s/char
	long := strings.Repeat("x", 200)
	for i := 0; i < 100; i++ {
		d := c.TypingTime(long)
		if d < 10*time.Second || d > 24*time.Second {
			t.Fatalf("Long-message typing time %s outside proportional range", d)
		}
	}
}

func TestReserveSendBurstThenBlock(t *testing.T) {
	cfg := config.DefaultConfig()
	c := New(cfg.Quota, cfg.Delays, WithRand(rand.New(rand.NewSource(1))))

	// The bucket starts full: DMHourly sends go through immediately
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < cfg.Quota.DMHourly; i++ {
		if err := c.ReserveSend(ctx); err != nil {
			t.Fatalf("Expected send %d to be admitted: %v", i+1, err)
		}
	}

	// The next reservation must wait for a refill, longer than our ctx
	short, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if err := c.ReserveSend(short); err == nil {
		t.Error("Expected the over-budget reservation to block until timeout")
	}
}

func TestChance(t *testing.T) {
	c := testController(t)

	hits := 0
	for i := 0; i < 10000; i++ {
		if c.Chance(0.4) {
			hits++
		}
	}
	if hits < 3500 || hits > 4500 {
		t.Errorf("Chance(0.4) hit %d/10000, outside plausible band", hits)
	}

	if c.Chance(0) {
		t.Error("Chance(0) must never hit")
	}
}

package mimicry

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgreach/pkg/config"
	"tgreach/pkg/guard"
	"tgreach/pkg/logger"
	"tgreach/pkg/quota"
	"tgreach/pkg/state"
	"tgreach/pkg/telegram"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func newSimulator(t *testing.T, client *telegram.Fake, decoys []string, cfg config.MimicryConfig) *Simulator {
	t.Helper()

	log := logger.NewTestLogger()
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), true, log)
	require.NoError(t, store.Load())

	defaults := config.DefaultConfig()
	q := quota.New(defaults.Quota, defaults.Delays, quota.WithRand(rand.New(rand.NewSource(3))))
	g := guard.New(log, time.Second, store.Save, guard.WithSleeper(noSleep))

	return New(client, g, q, decoys, cfg, log, WithSleeper(noSleep))
}

func seedDecoy(client *telegram.Fake) {
	client.AddChannel("memes", 500, 0)
	client.SetHistory(500, []telegram.Message{
		{ID: 1, PeerID: 500, Text: "first"},
		{ID: 2, PeerID: 500, Text: "second"},
	})
}

// actions counts every observable side effect the simulator can produce.
func actions(client *telegram.Fake) int {
	return len(client.Reactions) + len(client.Sent)
}

func TestWanderWithoutDecoysIsNoop(t *testing.T) {
	client := telegram.NewFake()
	sim := newSimulator(t, client, nil, config.MimicryConfig{InteractChance: 1})

	sim.Wander(context.Background())

	assert.Zero(t, actions(client))
}

func TestWanderPerformsExactlyOneAction(t *testing.T) {
	client := telegram.NewFake()
	seedDecoy(client)

	sim := newSimulator(t, client, []string{"memes"}, config.MimicryConfig{InteractChance: 1})
	sim.Wander(context.Background())

	assert.Equal(t, 1, actions(client))
}

func TestWanderNeverActsAtZeroChance(t *testing.T) {
	client := telegram.NewFake()
	seedDecoy(client)

	sim := newSimulator(t, client, []string{"memes"}, config.MimicryConfig{InteractChance: 0})
	sim.Wander(context.Background())

	assert.Zero(t, actions(client))
}

func TestWanderSwallowsResolveFailure(t *testing.T) {
	client := telegram.NewFake()
	client.Fail("ResolvePeer", &telegram.FloodWaitError{RetryAfter: 10 * time.Second})

	sim := newSimulator(t, client, []string{"memes"}, config.MimicryConfig{InteractChance: 1})
	sim.Wander(context.Background())

	assert.Zero(t, actions(client))
}

func TestRunWanderCount(t *testing.T) {
	// WanderChance 0 keeps Run to a single pass, 1 forces the second.
	client := telegram.NewFake()
	seedDecoy(client)
	sim := newSimulator(t, client, []string{"memes"}, config.MimicryConfig{WanderChance: 0, InteractChance: 1})
	sim.Run(context.Background())
	assert.Equal(t, 1, actions(client))

	client2 := telegram.NewFake()
	seedDecoy(client2)
	sim2 := newSimulator(t, client2, []string{"memes"}, config.MimicryConfig{WanderChance: 1, InteractChance: 1})
	sim2.Run(context.Background())
	assert.Equal(t, 2, actions(client2))
}

func TestWanderStopsOnCancel(t *testing.T) {
	client := telegram.NewFake()
	seedDecoy(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := newSimulator(t, client, []string{"memes"}, config.MimicryConfig{InteractChance: 1})
	sim.Wander(ctx)

	assert.Zero(t, actions(client))
}

package mimicry

import (
	"context"
	"time"

	"tgreach/pkg/config"
	"tgreach/pkg/guard"
	"tgreach/pkg/logger"
	"tgreach/pkg/quota"
	"tgreach/pkg/telegram"
)

// reactions is the emoji pool for spontaneous message reactions.
var reactions = []string{"👍", "🔥", "❤️", "👏", "😁"}

// chatter is the pool of short throwaway messages for decoy channels.
var chatter = []string{
	"🔥🔥🔥",
	"nice one",
	"lol",
	"this 👆",
	"agreed",
	"what a moment 😂",
}

// Simulator generates unrelated-looking account activity: browsing decoy
// channels, lingering on messages, occasionally performing one small
// action. It keeps the account profile from consisting exclusively of
// outreach traffic. It never reads or writes campaign state, and every
// failure inside it is swallowed.
type Simulator struct {
	client telegram.Client
	guard  *guard.Guard
	quota  *quota.Controller
	decoys []telegram.Ref
	cfg    config.MimicryConfig
	log    logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithSleeper replaces the pacing sleeper, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Simulator) { s.sleep = sleep }
}

// New creates a Simulator over the configured decoy channels.
func New(client telegram.Client, g *guard.Guard, q *quota.Controller, decoys []string, cfg config.MimicryConfig, log logger.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		client: client,
		guard:  g,
		quota:  q,
		cfg:    cfg,
		log:    log,
		sleep:  guard.Sleep,
	}
	for _, d := range decoys {
		s.decoys = append(s.decoys, telegram.Ref(d))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one mimicry pass: a wander through a random decoy
// channel, sometimes followed by a second one.
func (s *Simulator) Run(ctx context.Context) {
	s.Wander(ctx)
	if s.quota.Chance(s.cfg.WanderChance) {
		s.Wander(ctx)
	}
}

// Wander browses one random decoy channel: resolve it, skim a
// random-sized batch of recent messages with reading pauses, then with
// configured probability perform exactly one small action. Nothing it
// does affects campaign state.
func (s *Simulator) Wander(ctx context.Context) {
	if len(s.decoys) == 0 || ctx.Err() != nil {
		return
	}

	ref := s.decoys[s.quota.Intn(len(s.decoys))]
	peer, outcome := guard.Do(s.guard, ctx, "mimicry_resolve", func(ctx context.Context) (*telegram.Peer, error) {
		return s.client.ResolvePeer(ctx, ref)
	})
	if outcome != guard.OK {
		return
	}

	batch := 5 + s.quota.Intn(10)
	msgs, outcome := guard.Do(s.guard, ctx, "mimicry_history", func(ctx context.Context) ([]telegram.Message, error) {
		return s.client.History(ctx, peer.ID, batch)
	})
	if outcome != guard.OK || len(msgs) == 0 {
		return
	}

	s.log.WithFields(map[string]interface{}{
		"channel":  peer.Username,
		"messages": len(msgs),
	}).Debug("browsing decoy channel")

	for range msgs {
		if err := s.sleep(ctx, s.quota.Uniform(2*time.Second, 6*time.Second)); err != nil {
			return
		}
	}

	if s.quota.Chance(s.cfg.InteractChance) {
		s.interact(ctx, peer.ID, msgs)
	}
}

// interact performs exactly one of: react to a random message, reply to
// a random message, or post an unprompted short message. Outcome is
// irrelevant here, a failed action is just an action that did not
// happen.
func (s *Simulator) interact(ctx context.Context, peerID int64, msgs []telegram.Message) {
	msg := msgs[s.quota.Intn(len(msgs))]
	text := chatter[s.quota.Intn(len(chatter))]

	switch s.quota.Intn(3) {
	case 0:
		emoji := reactions[s.quota.Intn(len(reactions))]
		s.guard.Run(ctx, "mimicry_react", func(ctx context.Context) error {
			return s.client.React(ctx, peerID, msg.ID, emoji)
		})
	case 1:
		guard.Do(s.guard, ctx, "mimicry_reply", func(ctx context.Context) (*telegram.Message, error) {
			return s.client.ReplyTo(ctx, peerID, msg.ID, text)
		})
	default:
		guard.Do(s.guard, ctx, "mimicry_chatter", func(ctx context.Context) (*telegram.Message, error) {
			return s.client.SendMessage(ctx, peerID, text)
		})
	}
}

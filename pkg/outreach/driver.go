package outreach

import (
	"context"
	"strconv"
	"time"

	"tgreach/pkg/guard"
	"tgreach/pkg/logger"
	"tgreach/pkg/quota"
	"tgreach/pkg/state"
	"tgreach/pkg/telegram"
)

// Driver owns the per-user outreach lifecycle: it selects un-greeted
// candidates for first contact, and reacts to inbound replies by sending
// the invitation. Invitations are only ever sent reactively.
type Driver struct {
	client telegram.Client
	store  *state.Store
	guard  *guard.Guard
	quota  *quota.Controller
	target string
	log    logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customizes a Driver.
type Option func(*Driver)

// WithSleeper replaces the pacing sleeper, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Driver) { d.sleep = sleep }
}

// New creates a Driver. target is the destination interpolated into
// invitation messages.
func New(client telegram.Client, store *state.Store, g *guard.Guard, q *quota.Controller, target string, log logger.Logger, opts ...Option) *Driver {
	d := &Driver{
		client: client,
		store:  store,
		guard:  g,
		quota:  q,
		target: target,
		log:    log,
		sleep:  guard.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GreetSession runs one bounded outreach session: up to sessionLimit
// greets, subject to the daily quota and the hourly send budget. Users
// are processed in stable id order. It returns the number of confirmed
// sends.
func (d *Driver) GreetSession(ctx context.Context, sessionLimit int) (int, error) {
	d.log.WithField("session_limit", sessionLimit).Info("starting greet session")
	sent := 0

	for _, uid := range d.store.UserIDs() {
		if ctx.Err() != nil {
			break
		}
		if sent >= sessionLimit || !d.quota.DailyAllows(d.store.InvitesToday()) {
			break
		}

		u, ok := d.store.User(uid)
		if !ok || u.Greeted || u.Invited {
			continue
		}

		peerID, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			d.log.WithField("user_id", uid).Warn("malformed user id, skipping")
			continue
		}

		if err := d.quota.ReserveSend(ctx); err != nil {
			break
		}

		ok, err = d.greet(ctx, uid, peerID, u.Username)
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}

		if err := d.sleep(ctx, d.quota.UserPause()); err != nil {
			break
		}
	}

	d.log.WithField("sent", sent).Info("greet session finished")
	return sent, nil
}

// greet performs the first-contact sequence for one candidate. The
// greeted flag is set regardless of send success, so an unreachable user
// never consumes another first-contact slot. It reports whether the send
// was confirmed.
func (d *Driver) greet(ctx context.Context, uid string, peerID int64, username string) (bool, error) {
	// Warm up like a human: skim their recent messages first
	guard.Do(d.guard, ctx, "read_history", func(ctx context.Context) ([]telegram.Message, error) {
		return d.client.History(ctx, peerID, 3)
	})
	if err := d.sleep(ctx, d.quota.PreGreetRead()); err != nil {
		return false, nil
	}

	greet := renderGreet(greetTemplates[d.quota.Intn(len(greetTemplates))], username)

	d.guard.Run(ctx, "typing", func(ctx context.Context) error {
		return d.client.Typing(ctx, peerID)
	})
	if err := d.sleep(ctx, d.quota.TypingTime(greet)); err != nil {
		return false, nil
	}

	_, outcome := guard.Do(d.guard, ctx, "send_greet", func(ctx context.Context) (*telegram.Message, error) {
		return d.client.SendMessage(ctx, peerID, greet)
	})

	if err := d.store.MarkGreeted(uid); err != nil {
		return false, err
	}

	if outcome != guard.OK {
		d.log.WarnWithFields("greet failed, user marked greeted anyway", map[string]interface{}{
			"user_id": uid,
			"outcome": outcome.String(),
		})
		return false, nil
	}

	if err := d.store.RecordInvite(); err != nil {
		return false, err
	}
	d.log.InfoWithFields("greet sent", map[string]interface{}{
		"user_id":       uid,
		"invites_today": d.store.InvitesToday(),
	})
	return true, nil
}

// HandleIncoming processes one inbound private message: it marks the
// sender as responded and, for an engaged greeted user, triggers the
// invitation. Messages from unknown senders are dropped.
func (d *Driver) HandleIncoming(ctx context.Context, msg telegram.Message) error {
	uid := strconv.FormatInt(msg.SenderID, 10)

	u, ok := d.store.User(uid)
	if !ok {
		return nil
	}

	if !u.Responded {
		if err := d.store.MarkResponded(uid); err != nil {
			return err
		}
		d.log.WithField("user_id", uid).Info("user responded")
	}

	if u.Greeted && !u.Invited {
		return d.invite(ctx, uid, msg.SenderID)
	}
	return nil
}

// invite sends the randomized invitation after a brief read/typing
// simulation. The invited flag is set only on confirmed send.
func (d *Driver) invite(ctx context.Context, uid string, peerID int64) error {
	if err := d.sleep(ctx, d.quota.PreInviteRead()); err != nil {
		return nil
	}

	d.guard.Run(ctx, "typing", func(ctx context.Context) error {
		return d.client.Typing(ctx, peerID)
	})
	if err := d.sleep(ctx, d.quota.InviteTyping()); err != nil {
		return nil
	}

	invite := renderInvite(inviteTemplates[d.quota.Intn(len(inviteTemplates))], d.target)

	_, outcome := guard.Do(d.guard, ctx, "send_invite", func(ctx context.Context) (*telegram.Message, error) {
		return d.client.SendMessage(ctx, peerID, invite)
	})
	if outcome != guard.OK {
		d.log.WarnWithFields("invitation send failed", map[string]interface{}{
			"user_id": uid,
			"outcome": outcome.String(),
		})
		return nil
	}

	if err := d.store.MarkInvited(uid); err != nil {
		return err
	}
	d.log.WithField("user_id", uid).Info("invitation sent")
	return nil
}

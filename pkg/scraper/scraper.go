package scraper

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

// Scraper discovers candidate users from the discussion threads of a
// source channel, bounded by the per-run discovery limit, with per-post
// dedup that survives interruption.
type Scraper struct {
	client telegram.Client
	store  *state.Store
	guard  *guard.Guard
	quota  *quota.Controller
	log    logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithSleeper replaces the pacing sleeper, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scraper) { s.sleep = sleep }
}

// New creates a Scraper.
func New(client telegram.Client, store *state.Store, g *guard.Guard, q *quota.Controller, log logger.Logger, opts ...Option) *Scraper {
	s := &Scraper{
		client: client,
		store:  store,
		guard:  g,
		quota:  q,
		log:    log,
		sleep:  guard.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape walks the source channel's recent posts and expands each
// attached discussion thread into new user records. It returns the
// number of newly discovered users. Resolution failures abort only this
// run; they are not fatal to the caller.
func (s *Scraper) Scrape(ctx context.Context, source telegram.Ref) (int, error) {
	added := 0

	channel, outcome := guard.Do(s.guard, ctx, "resolve_source", func(ctx context.Context) (*telegram.Peer, error) {
		return s.client.ResolvePeer(ctx, source)
	})
	if outcome != guard.OK {
		return added, nil
	}

	full, outcome := guard.Do(s.guard, ctx, "source_full", func(ctx context.Context) (*telegram.PeerFull, error) {
		return s.client.PeerFull(ctx, channel)
	})
	if outcome != guard.OK {
		return added, nil
	}
	if full.LinkedChatID == 0 {
		s.log.WithField("channel", channel.Username).Error("source channel has no linked discussion group")
		return added, nil
	}
	discussionID := full.LinkedChatID

	posts, outcome := guard.Do(s.guard, ctx, "source_history", func(ctx context.Context) ([]telegram.Message, error) {
		return s.client.History(ctx, channel.ID, s.quota.ScrapeWindow())
	})
	if outcome != guard.OK {
		return added, nil
	}

	limit := s.quota.ScrapeLimit()
	for _, post := range posts {
		if ctx.Err() != nil {
			s.log.WithField("added", added).Warn("scrape interrupted")
			return added, nil
		}
		if post.ReplyCount == 0 || s.store.PostProcessed(channel.ID, post.ID) {
			continue
		}

		done, err := s.expandPost(ctx, channel.ID, discussionID, post.ID, limit, &added)
		if err != nil {
			return added, err
		}
		if ctx.Err() != nil {
			// Cancelled mid-post: leave it unmarked, persisted writes stand
			s.log.WithField("added", added).Warn("scrape interrupted")
			return added, nil
		}
		if done {
			// Limit reached mid-thread: the post stays unmarked so a
			// later run can pick up its remaining commentators.
			s.log.WithField("added", added).Info("scrape limit reached")
			s.logStats()
			return added, nil
		}

		if err := s.store.MarkPostProcessed(channel.ID, post.ID); err != nil {
			return added, err
		}

		if err := s.sleep(ctx, s.quota.ScrapePostDelay()); err != nil {
			s.log.WithField("added", added).Warn("scrape interrupted")
			return added, nil
		}
	}

	s.log.WithField("added", added).Info("scrape finished")
	s.logStats()
	return added, nil
}

// expandPost walks one post's discussion replies. It reports true when
// the per-run discovery limit was hit.
func (s *Scraper) expandPost(ctx context.Context, channelID, discussionID int64, postID, limit int, added *int) (bool, error) {
	root, outcome := guard.Do(s.guard, ctx, "discussion_root", func(ctx context.Context) (*telegram.Message, error) {
		return s.client.DiscussionRoot(ctx, channelID, postID)
	})
	if outcome != guard.OK {
		// Broken or missing discussion link: skip the post without error
		return false, nil
	}

	replies, outcome := guard.Do(s.guard, ctx, "discussion_replies", func(ctx context.Context) ([]telegram.Message, error) {
		return s.client.Replies(ctx, discussionID, root.ID)
	})
	if outcome != guard.OK {
		return false, nil
	}

	for _, reply := range replies {
		if reply.SenderID == 0 {
			continue
		}
		uid := strconv.FormatInt(reply.SenderID, 10)

		isNew, err := s.store.AddUser(uid, reply.SenderUsername)
		if err != nil {
			return false, err
		}
		if isNew {
			*added++
			s.log.InfoWithFields("discovered user", map[string]interface{}{
				"user_id":  uid,
				"username": reply.SenderUsername,
				"count":    *added,
			})
			if *added >= limit {
				return true, nil
			}
		}

		if err := s.sleep(ctx, s.quota.ScrapeReplyDelay()); err != nil {
			return false, nil
		}
	}

	return false, nil
}

func (s *Scraper) logStats() {
	st := s.store.Stats()
	s.log.InfoWithFields("campaign stats", map[string]interface{}{
		"total_users":   st.TotalUsers,
		"greeted":       st.Greeted,
		"invited":       st.Invited,
		"remaining":     st.Remaining,
		"invites_today": st.InvitesToday,
		"daily_quota":   s.quota.DailyQuota(),
	})
}

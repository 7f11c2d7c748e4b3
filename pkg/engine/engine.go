package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"tgreach/pkg/config"
	"tgreach/pkg/guard"
	"tgreach/pkg/logger"
	"tgreach/pkg/mimicry"
	"tgreach/pkg/outreach"
	"tgreach/pkg/quota"
	"tgreach/pkg/scraper"
	"tgreach/pkg/skip"
	"tgreach/pkg/state"
	"tgreach/pkg/telegram"
)

// Engine is the campaign orchestrator: an indefinite cooperative loop of
// scrape, outreach session, mimicry, and a long randomized pause. The
// inbound reply pump is the only concurrent companion; it shares a mutex
// with the outreach session so no two sends ever interleave.
type Engine struct {
	cfg      *config.Config
	client   telegram.Client
	store    *state.Store
	guard    *guard.Guard
	quota    *quota.Controller
	scraper  *scraper.Scraper
	outreach *outreach.Driver
	sim      *mimicry.Simulator
	skip     *skip.Listener
	log      logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	// mu serializes outreach sends between the cycle loop and the
	// reply pump.
	mu sync.Mutex
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSleeper replaces the pacing sleeper in the engine and every
// component it builds, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithSkipListener replaces the terminal skip listener, for tests.
func WithSkipListener(l *skip.Listener) Option {
	return func(e *Engine) { e.skip = l }
}

// WithRand forwards a deterministic random source to the quota
// controller, for tests.
func WithRand(opt quota.Option) Option {
	return func(e *Engine) { e.quota = quota.New(e.cfg.Quota, e.cfg.Delays, opt) }
}

// New wires an Engine and all of its components over a connected client
// and a loaded store.
func New(cfg *config.Config, client telegram.Client, store *state.Store, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		client: client,
		store:  store,
		log:    log,
		sleep:  guard.Sleep,
	}
	e.quota = quota.New(cfg.Quota, cfg.Delays)
	e.skip = skip.New(skip.DefaultKey, log)

	for _, opt := range opts {
		opt(e)
	}

	e.guard = guard.New(log, e.quota.SevereCoolDown(), store.Save, guard.WithSleeper(e.sleep))
	e.scraper = scraper.New(client, store, e.guard, e.quota, log, scraper.WithSleeper(e.sleep))
	e.outreach = outreach.New(client, store, e.guard, e.quota, cfg.Channels.Target, log, outreach.WithSleeper(e.sleep))
	e.sim = mimicry.New(client, e.guard, e.quota, cfg.Channels.Decoys, cfg.Mimicry, log, mimicry.WithSleeper(e.sleep))

	return e
}

// Run drives the campaign until the context is cancelled. State is
// flushed before returning, so an interrupt never loses an in-flight
// mutation.
func (e *Engine) Run(ctx context.Context) error {
	e.log.WithFields(map[string]interface{}{
		"source":      e.cfg.Channels.Source,
		"target":      e.cfg.Channels.Target,
		"daily_quota": e.quota.DailyQuota(),
	}).Info("campaign starting")

	e.joinChannels(ctx)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		e.replyPump(ctx)
	}()

	for ctx.Err() == nil {
		e.cycle(ctx)
	}

	<-pumpDone

	if err := e.store.Save(); err != nil {
		e.log.WithError(err).Error("final state flush failed")
		return err
	}
	e.log.Info("campaign stopped, state persisted")
	return nil
}

// cycle runs one orchestrator iteration: scrape when the backlog is
// thin, one bounded outreach session, a mimicry pass, then the long
// pause.
func (e *Engine) cycle(ctx context.Context) {
	if e.store.UnsentCount() < e.quota.DailyQuota() {
		e.scrapeOrSkip(ctx)
	}
	if ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	_, err := e.outreach.GreetSession(ctx, e.quota.SessionLimit())
	e.mu.Unlock()
	if err != nil {
		e.log.WithError(err).Error("outreach session failed")
	}
	if ctx.Err() != nil {
		return
	}

	e.sim.Run(ctx)
	if ctx.Err() != nil {
		return
	}

	pause := e.quota.LongPause()
	e.log.WithField("pause", pause).Info("cycle complete, sleeping")
	_ = e.sleep(ctx, pause)
}

// scrapeOrSkip races one scrape run against the operator's skip key.
// Whichever finishes first wins; the loser is cancelled and awaited, so
// no scrape work leaks into the next step. Writes the scrape persisted
// before cancellation remain valid.
func (e *Engine) scrapeOrSkip(ctx context.Context) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	scrapeDone := make(chan error, 1)
	go func() {
		_, err := e.scraper.Scrape(raceCtx, telegram.Ref(e.cfg.Channels.Source))
		scrapeDone <- err
	}()

	skipDone := make(chan error, 1)
	go func() {
		skipDone <- e.skip.Wait(raceCtx)
	}()

	select {
	case err := <-scrapeDone:
		cancel()
		<-skipDone
		if err != nil {
			e.log.WithError(err).Error("scrape failed")
		}
	case err := <-skipDone:
		cancel()
		<-scrapeDone
		if err == nil {
			e.log.Info("scrape skipped by operator")
		}
	}
}

// replyPump feeds inbound private messages to the outreach driver until
// the context is cancelled or the client disconnects.
func (e *Engine) replyPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-e.client.Incoming():
			if !ok {
				e.log.Warn("inbound message stream closed")
				return
			}
			e.mu.Lock()
			err := e.outreach.HandleIncoming(ctx, msg)
			e.mu.Unlock()
			if err != nil {
				e.log.WithError(err).Error("inbound message handling failed")
			}
		}
	}
}

// joinChannels makes sure the account is a member of the target channel
// and every decoy before the first cycle. Already-joined channels are
// fine; anything else is logged and tolerated.
func (e *Engine) joinChannels(ctx context.Context) {
	refs := make([]string, 0, len(e.cfg.Channels.Decoys)+1)
	if e.cfg.Channels.Target != "" {
		refs = append(refs, e.cfg.Channels.Target)
	}
	refs = append(refs, e.cfg.Channels.Decoys...)

	for _, raw := range refs {
		kind, value := telegram.Ref(raw).Parse()

		var err error
		switch kind {
		case telegram.RefInvite:
			err = e.client.ImportInvite(ctx, value)
		default:
			err = e.client.JoinChannel(ctx, value)
		}

		if err != nil && !errors.Is(err, telegram.ErrAlreadyParticipant) {
			e.log.WithError(err).WithField("channel", raw).Warn("channel join failed")
			continue
		}
		e.log.WithField("channel", raw).Debug("channel membership ensured")
	}
}

package portal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mektep-hub/mektep-portal/internal/domain/session"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/external/mektep"
)

// Portal is the explicit context object tying the data layer together: one
// remote client, one store, and the three engines. It is constructed once at
// startup and discarded at shutdown; there is no implicit global state.
type Portal struct {
	Sessions *SessionManager
	Schedule *ScheduleCache
	Timeline *TimelineSync

	logger *slog.Logger
	bg     sync.WaitGroup
}

// Options configures a Portal.
type Options struct {
	// Client is the remote platform client.
	Client *mektep.Client

	// Store is the persistent cache store.
	Store Store

	// Credentials identify the portal user.
	Credentials session.Credentials

	// Logger for structured logging; defaults to slog.Default().
	Logger *slog.Logger
}

// New builds the portal and restores all cached state (session, timetable,
// timeline) from the store, so the app is readable offline before any
// network traffic happens.
func New(ctx context.Context, opts Options) *Portal {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessions := NewSessionManager(opts.Client, opts.Store, logger, opts.Credentials)
	sessions.restore(ctx)

	schedule := NewScheduleCache(opts.Client, opts.Store, sessions, logger)
	schedule.restore(ctx)

	tl := NewTimelineSync(opts.Client, opts.Store, sessions, logger)
	tl.restore(ctx)

	return &Portal{
		Sessions: sessions,
		Schedule: schedule,
		Timeline: tl,
		logger:   logger,
	}
}

// Start optionally kicks off the quickstart refresh: a single detached
// background pass that revalidates the session (re-logging in if needed) and
// refreshes the recent timetable and timeline, best-effort. Foreground reads
// are not blocked while it runs; they see cached state until each write
// lands (last-write-wins, eventually consistent). Use Await to block until
// the pass finishes.
func (p *Portal) Start(ctx context.Context, quickstart bool) {
	if !quickstart {
		return
	}
	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		p.refresh(ctx)
	}()
}

// Await blocks until any background refresh started by Start has finished.
func (p *Portal) Await() {
	p.bg.Wait()
}

// refresh is the quickstart pass. Every step is best-effort: a failure is
// logged and the remaining cached state stays as it was.
func (p *Portal) refresh(ctx context.Context) {
	if !p.Sessions.Validate(ctx) {
		if !p.Sessions.Login(ctx) {
			p.logger.Warn("quickstart: re-login failed, staying on cached data")
			return
		}
	}

	if _, err := p.Schedule.Recent(ctx); err != nil {
		p.logger.Warn("quickstart: timetable refresh failed", "error", err)
	}
	if err := p.Timeline.RefreshRecent(ctx); err != nil {
		p.logger.Warn("quickstart: timeline refresh failed", "error", err)
	}
}

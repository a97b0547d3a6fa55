package polling

import (
	"context"
	"log/slog"
	"time"

	"clipwatch/internal/job"
	"clipwatch/internal/jobapi"
	"clipwatch/internal/jobcache"
	"clipwatch/internal/logging"
	"clipwatch/internal/services"
)

// ConnStateFunc reports the current push-channel state; the poller consults
// it before every cycle so it backs off as soon as push recovers.
type ConnStateFunc func() job.ConnectionState

// Poller runs the fallback polling loop for one job.
type Poller struct {
	scheduler *Scheduler
	api       jobapi.Client
	store     *jobcache.Store
	connState ConnStateFunc
	logger    *slog.Logger
}

// NewPoller wires a poller to the cache it reconciles into. A nil connState
// means no push channel exists and polling is always eligible.
func NewPoller(scheduler *Scheduler, api jobapi.Client, store *jobcache.Store, connState ConnStateFunc, logger *slog.Logger) *Poller {
	if connState == nil {
		connState = func() job.ConnectionState { return job.ConnectionState{Status: job.ConnClosed} }
	}
	return &Poller{
		scheduler: scheduler,
		api:       api,
		store:     store,
		connState: connState,
		logger:    logging.NewComponentLogger(logger, "polling"),
	}
}

// PollNow fetches the full job record and merges it into the cache. Used by
// the loop and for one-shot reconciliation after saga actions.
func (p *Poller) PollNow(ctx context.Context) (*job.Job, error) {
	record, err := p.api.GetJob(ctx, p.store.JobID())
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "polling", "poll", "fetch job record", err)
	}
	return p.store.Merge(record.AsDelta(), jobcache.SourcePoll), nil
}

// Run executes the polling loop until the context is canceled. When the
// scheduler suppresses polling, the loop sleeps one fallback interval and
// re-evaluates; conditions can only change via merges or marker updates,
// both of which another component drives.
func (p *Poller) Run(ctx context.Context) {
	for {
		interval, eligible := p.scheduler.NextInterval(p.store.Snapshot(), p.store.Marker(), p.connState())
		wait := interval
		if !eligible {
			wait = p.scheduler.FallbackInterval()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !eligible {
			continue
		}
		// Push may have recovered while we slept; skip the cycle then.
		if _, stillEligible := p.scheduler.NextInterval(p.store.Snapshot(), p.store.Marker(), p.connState()); !stillEligible {
			continue
		}

		if _, err := p.PollNow(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("poll cycle failed", logging.Error(err))
		}
	}
}

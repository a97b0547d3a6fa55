// Package watcher composes the full reconciliation engine for one job: the
// push channel, the polling fallback, stuck-marker sweeps, the transition
// archive, and notifications, all sharing a single cache.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipwatch/internal/archive"
	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/jobapi"
	"clipwatch/internal/jobcache"
	"clipwatch/internal/logging"
	"clipwatch/internal/notifications"
	"clipwatch/internal/pipeline"
	"clipwatch/internal/polling"
	"clipwatch/internal/pushchan"
	"clipwatch/internal/stuck"
)

const defaultSweepInterval = 30 * time.Second

// Options configures a Watcher. Config and API are required; the rest
// default sensibly. A nil Archive disables history recording.
type Options struct {
	Config        *config.Config
	API           jobapi.Client
	Dialer        pushchan.Dialer
	Notifier      notifications.Service
	Archive       *archive.Store
	Logger        *slog.Logger
	SweepInterval time.Duration
}

// Watcher runs the reconciliation engine for one tracked job.
type Watcher struct {
	jobID    string
	cfg      *config.Config
	store    *jobcache.Store
	push     *pushchan.Manager
	poller   *polling.Poller
	detector *stuck.Detector
	notifier notifications.Service
	archive  *archive.Store
	logger   *slog.Logger
	sweep    time.Duration

	mu                sync.Mutex
	connState         job.ConnectionState
	completedNotified bool
}

// New assembles a watcher for the given job id.
func New(jobID string, opts Options) *Watcher {
	logger := logging.NewComponentLogger(opts.Logger, "watcher")
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(opts.Config.Notifications, opts.Logger)
	}
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}

	w := &Watcher{
		jobID:     jobID,
		cfg:       opts.Config,
		store:     jobcache.NewStore(jobID),
		push:      pushchan.NewManager(opts.Config.Server, opts.Config.Push, opts.Dialer, opts.Logger),
		detector:  stuck.NewDetector(opts.Config.Stuck),
		notifier:  notifier,
		archive:   opts.Archive,
		logger:    logger.With(logging.String(logging.FieldJobID, jobID)),
		sweep:     sweep,
		connState: job.ConnectionState{Status: job.ConnClosed},
	}
	scheduler := polling.NewScheduler(opts.Config.Polling)
	w.poller = polling.NewPoller(scheduler, opts.API, w.store, w.ConnectionState, opts.Logger)
	return w
}

// Store exposes the reconciled cache; the sequencer and status rendering
// share it.
func (w *Watcher) Store() *jobcache.Store {
	return w.store
}

// ConnectionState returns the current push-channel state.
func (w *Watcher) ConnectionState() job.ConnectionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connState
}

func (w *Watcher) setConnState(state job.ConnectionState) {
	w.mu.Lock()
	w.connState = state
	w.mu.Unlock()
}

// Run operates the engine until the context is canceled, then tears
// everything down synchronously: when Run returns, no timer or goroutine it
// started is live.
func (w *Watcher) Run(ctx context.Context) error {
	// Seed the cache so stuck sweeps and scheduling decisions start from
	// real state rather than an empty record.
	if _, err := w.poller.PollNow(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("initial fetch failed, starting from empty cache", logging.Error(err))
	}

	unsubscribe := w.store.Subscribe(func(update jobcache.Update) {
		w.onUpdate(ctx, update)
	})
	defer unsubscribe()

	handle, err := w.push.Subscribe(ctx, w.jobID, pushchan.Events{
		OnDelta: func(delta job.Delta) {
			w.store.Merge(delta, jobcache.SourcePush)
		},
		OnState: w.setConnState,
		OnTerminal: func(err error) {
			w.logger.Warn("push channel gave up, polling carries on", logging.Error(err))
			state := w.ConnectionState()
			if nerr := w.notifier.NotifyConnectionLost(ctx, w.jobID, state.LastError); nerr != nil {
				w.logger.Warn("connection notification failed", logging.Error(nerr))
			}
		},
	})
	if err != nil {
		return err
	}
	defer handle.Unsubscribe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.poller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		w.sweepLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// onUpdate reacts to every cache merge: archive the transitions, re-check
// the processing marker against the fresh snapshot, notify failures, and
// notify completion once.
func (w *Watcher) onUpdate(ctx context.Context, update jobcache.Update) {
	if w.archive != nil {
		if err := w.archive.RecordUpdate(ctx, update, time.Now()); err != nil {
			w.logger.Warn("archiving transitions failed", logging.Error(err))
		}
	}

	// A merge may show the marker's work finished or failed; clearing at
	// reconcile time keeps the scheduler and status output from trailing
	// the sweep cadence. The sweep still covers purely time-based stalls.
	w.sweepOnce(ctx, time.Now())

	for _, change := range update.Changes {
		if change.To != job.StateFailed {
			continue
		}
		w.logger.Error("stage failed",
			logging.String(logging.FieldStage, string(change.Stage)))
		if err := w.notifier.NotifyStageFailed(ctx, w.jobID, change.Stage, ""); err != nil {
			w.logger.Warn("failure notification failed", logging.Error(err))
		}
	}

	if len(update.Changes) > 0 && pipeline.CompletionRatio(update.Job) >= 1 {
		w.mu.Lock()
		notified := w.completedNotified
		w.completedNotified = true
		w.mu.Unlock()
		if !notified {
			if err := w.notifier.NotifyPipelineCompleted(ctx, w.jobID, update.Job.Title); err != nil {
				w.logger.Warn("completion notification failed", logging.Error(err))
			}
		}
	}
}

func (w *Watcher) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx, time.Now())
		}
	}
}

// sweepOnce evaluates the processing marker against the current snapshot
// and clears it when the tracked work finished, failed, or stalled.
func (w *Watcher) sweepOnce(ctx context.Context, now time.Time) {
	snapshot := w.store.Snapshot()
	marker := w.store.Marker()
	result, cleared := w.detector.CheckAndClear(snapshot, w.store, now)
	if !cleared {
		return
	}
	w.logger.Info("processing marker cleared",
		logging.String("reason", string(result.Reason)),
		logging.String(logging.FieldStage, string(result.Stage)))
	if result.Reason != stuck.ReasonStuck {
		return
	}

	waited := w.detector.Threshold(result.Stage)
	if timing := snapshot.Timing(result.Stage); timing.StartedAt != nil {
		waited = now.Sub(*timing.StartedAt)
	} else if marker != nil {
		waited = now.Sub(marker.StartedAt)
	}
	if err := w.notifier.NotifyStageStuck(ctx, w.jobID, result.Stage, waited); err != nil {
		w.logger.Warn("stuck notification failed", logging.Error(err))
	}
}

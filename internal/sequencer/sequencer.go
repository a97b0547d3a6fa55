package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/jobapi"
	"clipwatch/internal/jobcache"
	"clipwatch/internal/logging"
	"clipwatch/internal/notifications"
	"clipwatch/internal/pipeline"
	"clipwatch/internal/services"
)

// Phase names the steps of a full processing run.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseDownloading   Phase = "downloading"
	PhaseAwaitingChain Phase = "awaiting_transcription_chain"
	PhaseUploading     Phase = "uploading_artifact"
	PhaseSyncingSheets Phase = "syncing_sheets"
	PhaseDone          Phase = "done"
)

// Result summarizes a completed run. UploadError and SheetsError are
// best-effort failures: the run still reaches PhaseDone with them set.
type Result struct {
	Phases         []Phase
	HasFailedStage bool
	UploadError    error
	SheetsError    error
}

// Ok reports whether the run finished with no failures at all.
func (r *Result) Ok() bool {
	return r != nil && !r.HasFailedStage && r.UploadError == nil && r.SheetsError == nil
}

// Summary renders a one-line human-readable outcome.
func (r *Result) Summary() string {
	if r == nil {
		return "no result"
	}
	if r.Ok() {
		return "all stages completed"
	}
	msg := "completed"
	if r.HasFailedStage {
		msg += ", some stages failed"
	}
	if r.UploadError != nil {
		msg += ", upload failed"
	}
	if r.SheetsError != nil {
		msg += ", sheets sync failed"
	}
	return msg
}

// Options tunes the wait loops between saga steps.
type Options struct {
	DownloadPollInterval time.Duration
	DownloadMaxAttempts  int
	ChainPollInterval    time.Duration
	ChainMaxAttempts     int
}

// OptionsFromConfig converts the sequencer configuration section, falling
// back to defaults for unset values.
func OptionsFromConfig(cfg config.Sequencer) Options {
	opts := Options{
		DownloadPollInterval: time.Duration(cfg.DownloadPollInterval) * time.Second,
		DownloadMaxAttempts:  cfg.DownloadMaxAttempts,
		ChainPollInterval:    time.Duration(cfg.ChainPollInterval) * time.Second,
		ChainMaxAttempts:     cfg.ChainMaxAttempts,
	}
	if opts.DownloadPollInterval <= 0 {
		opts.DownloadPollInterval = 2 * time.Second
	}
	if opts.DownloadMaxAttempts <= 0 {
		opts.DownloadMaxAttempts = 60
	}
	if opts.ChainPollInterval <= 0 {
		opts.ChainPollInterval = 5 * time.Second
	}
	if opts.ChainMaxAttempts <= 0 {
		opts.ChainMaxAttempts = 300
	}
	return opts
}

// Sequencer runs sagas for one tracked job.
type Sequencer struct {
	opts     Options
	api      jobapi.Client
	store    *jobcache.Store
	notifier notifications.Service
	logger   *slog.Logger

	// OnPhase, when set, observes every phase transition. Called on the
	// run's goroutine.
	OnPhase func(Phase)

	cancelMu  sync.Mutex
	cancelRun context.CancelFunc
}

// New wires a sequencer to the cache and API client for one job. A nil
// notifier disables notifications.
func New(opts Options, api jobapi.Client, store *jobcache.Store, notifier notifications.Service, logger *slog.Logger) *Sequencer {
	if notifier == nil {
		notifier = notifications.NewService(config.Notifications{}, nil)
	}
	return &Sequencer{
		opts:     opts,
		api:      api,
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "sequencer"),
	}
}

// Run executes the full saga: download, transcription chain, artifact
// upload, sheets sync. Returns services.ErrAlreadyProcessing without side
// effects when another run holds the marker. Upload and sheets failures do
// not abort the run; download or chain failures do.
func (s *Sequencer) Run(ctx context.Context) (*Result, error) {
	jobID := s.store.JobID()
	if _, ok := s.store.TryAcquireMarker(job.ActionProcessAll, time.Now()); !ok {
		return nil, services.Wrap(services.ErrAlreadyProcessing, "sequencer", "run",
			"another action is in flight for this job", nil)
	}
	defer s.store.ClearMarker()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelMu.Lock()
	s.cancelRun = cancel
	s.cancelMu.Unlock()
	defer func() {
		s.cancelMu.Lock()
		s.cancelRun = nil
		s.cancelMu.Unlock()
	}()

	logger := s.logger.With(logging.String(logging.FieldJobID, jobID))
	result := &Result{}
	s.enterPhase(result, logger, PhaseIdle)

	if err := s.runDownload(ctx, result, logger); err != nil {
		return nil, err
	}
	if err := s.runChain(ctx, result, logger); err != nil {
		return nil, err
	}
	s.runPublish(ctx, result, logger)

	s.enterPhase(result, logger, PhaseDone)
	snapshot := s.store.Snapshot()
	result.HasFailedStage = pipeline.HasFailedStage(snapshot)
	if err := s.notifier.NotifySagaFinished(ctx, jobID, result.Summary(), result.Ok()); err != nil {
		logger.Warn("saga notification failed", logging.Error(err))
	}
	return result, nil
}

func (s *Sequencer) enterPhase(result *Result, logger *slog.Logger, phase Phase) {
	result.Phases = append(result.Phases, phase)
	logger.Info("phase", logging.String("phase", string(phase)))
	if s.OnPhase != nil {
		s.OnPhase(phase)
	}
}

func (s *Sequencer) runDownload(ctx context.Context, result *Result, logger *slog.Logger) error {
	snapshot := s.store.Snapshot()
	if snapshot.State(job.StageDownload).IsDone() {
		logger.Info("download already finished, skipping")
		return nil
	}
	if snapshot.SourceURL == "" {
		return services.Wrap(services.ErrSourceNotReady, "sequencer", "download",
			"job has no upstream source url", nil)
	}
	s.enterPhase(result, logger, PhaseDownloading)
	s.store.RetargetMarker(job.StageDownload)

	record, err := s.api.StartDownload(ctx, s.store.JobID())
	if err != nil {
		return services.Wrap(services.ErrStageFailed, "sequencer", "download", "start download", err)
	}
	s.store.Merge(record.AsDelta(), jobcache.SourcePoll)

	_, err = s.await(ctx, s.opts.DownloadPollInterval, s.opts.DownloadMaxAttempts, "download",
		func(snapshot *job.Job) (bool, error) {
			switch state := snapshot.State(job.StageDownload); state {
			case job.StateComplete, job.StateSkipped:
				return true, nil
			case job.StateFailed:
				return false, services.Wrap(services.ErrStageFailed, "sequencer", "download",
					"backend reported download failed", nil)
			default:
				return false, nil
			}
		}, nil)
	return err
}

func (s *Sequencer) runChain(ctx context.Context, result *Result, logger *slog.Logger) error {
	if pipeline.ChainTerminal(s.store.Snapshot()) {
		logger.Info("transcription chain already terminal, skipping")
		return nil
	}
	s.enterPhase(result, logger, PhaseAwaitingChain)
	s.store.RetargetMarker(job.StageTranscription)

	record, err := s.api.StartTranscriptionChain(ctx, s.store.JobID())
	if err != nil {
		return services.Wrap(services.ErrStageFailed, "sequencer", "chain", "start transcription chain", err)
	}
	s.store.Merge(record.AsDelta(), jobcache.SourcePoll)

	_, err = s.await(ctx, s.opts.ChainPollInterval, s.opts.ChainMaxAttempts, "chain",
		func(snapshot *job.Job) (bool, error) {
			return pipeline.ChainTerminal(snapshot), nil
		},
		func(snapshot *job.Job) {
			// Advisory only: keeps the marker and any status display
			// pointing at the stage most likely running.
			if stage, ok := pipeline.CurrentActiveStage(snapshot); ok {
				s.store.RetargetMarker(stage)
			}
		})
	return err
}

// runPublish performs the best-effort tail of the saga. Neither step can
// fail the run; errors land in the result and, for visibility, in logs.
func (s *Sequencer) runPublish(ctx context.Context, result *Result, logger *slog.Logger) {
	jobID := s.store.JobID()
	snapshot := s.store.Snapshot()
	if _, ok := snapshot.Artifact(job.ArtifactFinalVideo); !ok {
		logger.Info("no final video artifact, skipping publish")
		return
	}

	if _, uploaded := snapshot.Artifact(job.ArtifactCDNURL); !uploaded {
		s.enterPhase(result, logger, PhaseUploading)
		s.store.RetargetMarker(job.StageCloudinaryUpload)
		record, err := s.api.UploadAndPublish(ctx, jobID)
		if err != nil {
			result.UploadError = err
			logger.Warn("artifact upload failed", logging.Error(err))
		} else {
			// The upload response may also settle the sheets state; the
			// sync decision below reads the merged record.
			snapshot = s.store.Merge(record.AsDelta(), jobcache.SourcePoll)
		}
	}

	if snapshot.State(job.StageSheetsSync).IsDone() {
		return
	}
	s.enterPhase(result, logger, PhaseSyncingSheets)
	s.store.RetargetMarker(job.StageSheetsSync)
	record, err := s.api.SyncSheets(ctx, jobID)
	if err != nil {
		result.SheetsError = err
		logger.Warn("sheets sync failed", logging.Error(err))
		return
	}
	s.store.Merge(record.AsDelta(), jobcache.SourcePoll)
}

// await blocks until check reports done, consuming one fetch per interval.
// The current snapshot is checked before the first sleep, so state already
// delivered by push satisfies the wait immediately. Fetch errors consume an
// attempt rather than aborting; the budget bounds the total wait either way.
func (s *Sequencer) await(ctx context.Context, interval time.Duration, maxAttempts int, op string,
	check func(*job.Job) (bool, error), observe func(*job.Job)) (*job.Job, error) {
	for attempt := 0; ; attempt++ {
		snapshot := s.store.Snapshot()
		if observe != nil {
			observe(snapshot)
		}
		done, err := check(snapshot)
		if err != nil {
			return nil, err
		}
		if done {
			return snapshot, nil
		}
		if attempt >= maxAttempts {
			return nil, services.Wrap(services.ErrTimeout, "sequencer", op,
				fmt.Sprintf("no terminal state after %d attempts", maxAttempts), nil)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		record, err := s.api.GetJob(ctx, s.store.JobID())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("wait-loop fetch failed", logging.String("operation", op), logging.Error(err))
			continue
		}
		s.store.Merge(record.AsDelta(), jobcache.SourcePoll)
	}
}

// Cancel aborts an in-flight Run, if any. The run returns context.Canceled
// and releases its marker.
func (s *Sequencer) Cancel() {
	s.cancelMu.Lock()
	cancel := s.cancelRun
	s.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RetryStage asks the backend to re-run a failed stage. The acquired marker
// stays held; the stuck detector clears it once the stage reaches a terminal
// state again.
func (s *Sequencer) RetryStage(ctx context.Context, stage job.StageName) (*job.Job, error) {
	if _, ok := s.store.TryAcquireMarker(job.ActionRetryStage, time.Now()); !ok {
		return nil, services.Wrap(services.ErrAlreadyProcessing, "sequencer", "retry",
			"another action is in flight for this job", nil)
	}
	s.store.RetargetMarker(stage)

	record, err := s.api.RetryStage(ctx, s.store.JobID(), stage)
	if err != nil {
		s.store.ClearMarker()
		return nil, err
	}
	return s.store.Merge(record.AsDelta(), jobcache.SourcePoll), nil
}

// ResetStage clears a stage back to pending. No marker is taken: a reset is
// bookkeeping, not processing.
func (s *Sequencer) ResetStage(ctx context.Context, stage job.StageName) (*job.Job, error) {
	record, err := s.api.ResetStage(ctx, s.store.JobID(), stage)
	if err != nil {
		return nil, err
	}
	return s.store.Merge(record.AsDelta(), jobcache.SourcePoll), nil
}

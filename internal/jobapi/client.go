package jobapi

import (
	"context"

	"clipwatch/internal/job"
)

// Client is the surface the engine needs from the backend Job API.
type Client interface {
	// GetJob fetches the full current job record.
	GetJob(ctx context.Context, id string) (*job.Job, error)
	// StartDownload asks the backend to fetch the source video.
	StartDownload(ctx context.Context, id string) (*job.Job, error)
	// StartTranscriptionChain triggers transcription and, server-side, the
	// entire downstream chain through final assembly.
	StartTranscriptionChain(ctx context.Context, id string) (*job.Job, error)
	// UploadAndPublish pushes the final video to the CDN.
	UploadAndPublish(ctx context.Context, id string) (*job.Job, error)
	// SyncSheets exports the job's metadata row.
	SyncSheets(ctx context.Context, id string) (*job.Job, error)
	// ResetStage clears a stage back to pending.
	ResetStage(ctx context.Context, id string, stage job.StageName) (*job.Job, error)
	// RetryStage re-runs a failed stage.
	RetryStage(ctx context.Context, id string, stage job.StageName) (*job.Job, error)
}

package testsupport

import (
	"context"
	"fmt"
	"sync"

	"clipwatch/internal/job"
)

// Operation names recorded by FakeAPI, one per Client method.
const (
	OpGetJob        = "get_job"
	OpStartDownload = "start_download"
	OpStartChain    = "start_transcription_chain"
	OpUpload        = "upload_and_publish"
	OpSyncSheets    = "sync_sheets"
	OpResetStage    = "reset_stage"
	OpRetryStage    = "retry_stage"
)

// FakeAPI is an in-memory jobapi.Client. It serves clones of one mutable
// job record, logs every call, and lets tests inject errors or per-operation
// hooks that mutate the record, which is how tests script a backend that
// advances stages over successive polls.
type FakeAPI struct {
	mu     sync.Mutex
	record *job.Job
	calls  []string
	errs   map[string]error
	hooks  map[string]func(*job.Job)
}

// NewFakeAPI serves the given record; nil starts from an empty "job-1".
func NewFakeAPI(record *job.Job) *FakeAPI {
	if record == nil {
		record = job.New("job-1")
	}
	return &FakeAPI{
		record: record,
		errs:   make(map[string]error),
		hooks:  make(map[string]func(*job.Job)),
	}
}

// SetRecord replaces the served record.
func (f *FakeAPI) SetRecord(record *job.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record = record
}

// Record returns a clone of the current record.
func (f *FakeAPI) Record() *job.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record.Clone()
}

// FailWith makes an operation return err on every call; nil clears it.
func (f *FakeAPI) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// OnCall registers a hook run against the record on every call of op,
// before the response clone is taken.
func (f *FakeAPI) OnCall(op string, fn func(*job.Job)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

// Calls returns the operation log in call order.
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was invoked.
func (f *FakeAPI) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == op {
			count++
		}
	}
	return count
}

func (f *FakeAPI) invoke(ctx context.Context, op, id string) (*job.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if err := f.errs[op]; err != nil {
		return nil, err
	}
	if f.record.ID != id {
		return nil, fmt.Errorf("unknown job %q", id)
	}
	if hook := f.hooks[op]; hook != nil {
		hook(f.record)
	}
	return f.record.Clone(), nil
}

func (f *FakeAPI) GetJob(ctx context.Context, id string) (*job.Job, error) {
	return f.invoke(ctx, OpGetJob, id)
}

func (f *FakeAPI) StartDownload(ctx context.Context, id string) (*job.Job, error) {
	return f.invoke(ctx, OpStartDownload, id)
}

func (f *FakeAPI) StartTranscriptionChain(ctx context.Context, id string) (*job.Job, error) {
	return f.invoke(ctx, OpStartChain, id)
}

func (f *FakeAPI) UploadAndPublish(ctx context.Context, id string) (*job.Job, error) {
	return f.invoke(ctx, OpUpload, id)
}

func (f *FakeAPI) SyncSheets(ctx context.Context, id string) (*job.Job, error) {
	return f.invoke(ctx, OpSyncSheets, id)
}

func (f *FakeAPI) ResetStage(ctx context.Context, id string, stage job.StageName) (*job.Job, error) {
	return f.invoke(ctx, OpResetStage, id)
}

func (f *FakeAPI) RetryStage(ctx context.Context, id string, stage job.StageName) (*job.Job, error) {
	return f.invoke(ctx, OpRetryStage, id)
}

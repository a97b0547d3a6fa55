package jobapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/services"
)

const userAgent = "clipwatch/0.1.0"

// retryAttempts bounds transient retries per call; the sequencer's wait-loops
// provide the long-horizon retrying, so the client stays snappy.
const retryAttempts = 3

// HTTPClient implements Client against the backend's REST surface.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient builds a client from the server configuration section.
func NewHTTPClient(cfg config.Server) *HTTPClient {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		token:   cfg.APIToken,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetJob(ctx context.Context, id string) (*job.Job, error) {
	return c.call(ctx, http.MethodGet, c.jobPath(id), "get job")
}

func (c *HTTPClient) StartDownload(ctx context.Context, id string) (*job.Job, error) {
	return c.call(ctx, http.MethodPost, c.jobPath(id)+"/download", "start download")
}

func (c *HTTPClient) StartTranscriptionChain(ctx context.Context, id string) (*job.Job, error) {
	return c.call(ctx, http.MethodPost, c.jobPath(id)+"/transcribe", "start transcription chain")
}

func (c *HTTPClient) UploadAndPublish(ctx context.Context, id string) (*job.Job, error) {
	return c.call(ctx, http.MethodPost, c.jobPath(id)+"/publish", "upload and publish")
}

func (c *HTTPClient) SyncSheets(ctx context.Context, id string) (*job.Job, error) {
	return c.call(ctx, http.MethodPost, c.jobPath(id)+"/sheets-sync", "sync sheets")
}

func (c *HTTPClient) ResetStage(ctx context.Context, id string, stage job.StageName) (*job.Job, error) {
	return c.call(ctx, http.MethodPost, c.stagePath(id, stage)+"/reset", "reset stage")
}

func (c *HTTPClient) RetryStage(ctx context.Context, id string, stage job.StageName) (*job.Job, error) {
	return c.call(ctx, http.MethodPost, c.stagePath(id, stage)+"/retry", "retry stage")
}

func (c *HTTPClient) jobPath(id string) string {
	return c.baseURL + "/api/jobs/" + url.PathEscape(id)
}

func (c *HTTPClient) stagePath(id string, stage job.StageName) string {
	return c.jobPath(id) + "/stages/" + url.PathEscape(string(stage))
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *HTTPClient) call(ctx context.Context, method, endpoint, operation string) (*job.Job, error) {
	var result *job.Job
	attempt := func() error {
		record, err := c.do(ctx, method, endpoint, operation)
		if err != nil {
			if services.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = record
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retryAttempts),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint, operation string) (*job.Job, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "jobapi", operation, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobapi", operation, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var record job.Job
		if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
			return nil, services.Wrap(services.ErrValidation, "jobapi", operation, "decode response", err)
		}
		return &record, nil
	}

	detail := readErrorDetail(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "jobapi", operation, detail, nil)
	case resp.StatusCode == http.StatusConflict:
		return nil, services.Wrap(services.ErrAlreadyProcessing, "jobapi", operation, detail, nil)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, services.Wrap(services.ErrStageFailed, "jobapi", operation, detail, nil)
	case resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "jobapi", operation,
			fmt.Sprintf("backend returned %d: %s", resp.StatusCode, detail), nil)
	default:
		return nil, services.Wrap(services.ErrValidation, "jobapi", operation,
			fmt.Sprintf("backend returned %d: %s", resp.StatusCode, detail), nil)
	}
}

func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 2048))
	if err != nil {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(raw))
}

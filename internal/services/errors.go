package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks push-channel drops and network blips. Recovered
	// locally via reconnect or polling fallback; never user-facing on its own.
	ErrTransport = errors.New("transport error")
	// ErrTerminalConnection marks a push channel whose reconnect budget is
	// exhausted. Surfaced to the caller exactly once.
	ErrTerminalConnection = errors.New("connection failed permanently")
	// ErrStuck marks a stage that exceeded its configured threshold without
	// finishing. Advisory only.
	ErrStuck = errors.New("stage stuck")
	// ErrTimeout marks a wait-loop that exceeded its bounded attempt count.
	ErrTimeout = errors.New("timeout")
	// ErrStageFailed marks an explicit backend stage failure.
	ErrStageFailed = errors.New("stage failed")
	// ErrSourceNotReady rejects a download for a job whose upstream source
	// is not available yet.
	ErrSourceNotReady = errors.New("source not ready")
	// ErrAlreadyProcessing rejects a second saga run for the same job. It is
	// an informational notice, not a failure.
	ErrAlreadyProcessing = errors.New("already processing")
	// ErrValidation marks malformed inputs or payloads.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a job the backend does not know.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks retryable remote-call failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsAdvisory reports whether an error is absorbed inside the engine and only
// produces a notification rather than propagating to the presentation layer.
func IsAdvisory(err error) bool {
	switch {
	case errors.Is(err, ErrTransport),
		errors.Is(err, ErrStuck),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrAlreadyProcessing):
		return true
	default:
		return false
	}
}

// IsRetryable reports whether a remote call failure is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTransport)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

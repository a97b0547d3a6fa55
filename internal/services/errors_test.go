package services_test

import (
	"errors"
	"strings"
	"testing"

	"clipwatch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "pushchan", "dial", "handshake refused", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"pushchan", "dial", "handshake refused"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "jobapi", "get job", "", errors.New("io"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
}

func TestIsAdvisory(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{services.ErrTransport, true},
		{services.ErrStuck, true},
		{services.ErrTimeout, true},
		{services.ErrAlreadyProcessing, true},
		{services.ErrStageFailed, false},
		{services.ErrTerminalConnection, false},
		{services.ErrValidation, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "component", "op", "", nil)
		if services.IsAdvisory(err) != tc.want {
			t.Fatalf("IsAdvisory(%v) = %v, want %v", tc.marker, !tc.want, tc.want)
		}
	}
}

func TestContextRoundTrips(t *testing.T) {
	ctx := services.WithJobID(t.Context(), "job-9")
	ctx = services.WithStage(ctx, "transcription")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-9" {
		t.Fatalf("job id = %q, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcription" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

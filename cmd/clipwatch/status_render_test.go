package main

import (
	"strings"
	"testing"
	"time"

	"clipwatch/internal/job"
)

func TestRenderStatusShowsStagesAndCompletion(t *testing.T) {
	record := job.New("job-1")
	record.Title = "Launch teaser"
	record.StageStatus[job.StageDownload] = job.StateComplete
	record.StageStatus[job.StageTranscription] = job.StateActive
	started := time.Now().Add(-90 * time.Second)
	record.StageTimestamps[job.StageTranscription] = job.StageTiming{StartedAt: &started}
	record.ArtifactURLs[job.ArtifactOriginal] = "https://backend.example.com/original.mp4"

	out := renderStatus(statusView{Snapshot: record}, false)

	for _, want := range []string{
		"Job job-1: Launch teaser",
		"Completion: 8%",
		"current: Transcription",
		"Download",
		"TTS Synthesis",
		"https://backend.example.com/original.mp4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("uncolored render must not contain ansi escapes")
	}
}

func TestRenderStatusFlagsFailures(t *testing.T) {
	record := job.New("job-1")
	record.StageStatus[job.StageTTSSynthesis] = job.StateFailed

	out := renderStatus(statusView{Snapshot: record}, false)
	if !strings.Contains(out, "some stages failed") {
		t.Errorf("failed stage not surfaced:\n%s", out)
	}
}

func TestRenderStatusShowsMarkerAndConnection(t *testing.T) {
	record := job.New("job-1")
	now := time.Now()
	marker := job.NewMarker("job-1", job.ActionDownload, now.Add(-2*time.Minute))
	conn := &job.ConnectionState{Status: job.ConnConnecting, ReconnectAttempts: 3}

	out := renderStatus(statusView{Snapshot: record, Marker: marker, Conn: conn, Now: now}, false)
	if !strings.Contains(out, "Push channel: connecting (reconnect attempt 3)") {
		t.Errorf("connection state missing:\n%s", out)
	}
	if !strings.Contains(out, "In flight: download (download, held 2m0s)") {
		t.Errorf("marker line missing:\n%s", out)
	}
}

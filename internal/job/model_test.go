package job_test

import (
	"testing"
	"time"

	"clipwatch/internal/job"
)

func TestParseStage(t *testing.T) {
	cases := []struct {
		input string
		want  job.StageName
		ok    bool
	}{
		{"download", job.StageDownload, true},
		{"  Transcription ", job.StageTranscription, true},
		{"TTS_SYNTHESIS", job.StageTTSSynthesis, true},
		{"", "", false},
		{"ripping", "", false},
	}
	for _, tc := range cases {
		got, ok := job.ParseStage(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseStage(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestStageOrderOptionalMarkers(t *testing.T) {
	order := job.StageOrder()
	if len(order) != 11 {
		t.Fatalf("expected 11 stages, got %d", len(order))
	}
	if order[0] != job.StageDownload || order[len(order)-1] != job.StageSheetsSync {
		t.Fatalf("unexpected canonical order boundaries: %v", order)
	}
	optional := map[job.StageName]bool{
		job.StageFrameExtraction:    true,
		job.StageVisualAnalysis:     true,
		job.StageEnhancedTranscript: true,
	}
	for _, stage := range order {
		if stage.IsOptional() != optional[stage] {
			t.Fatalf("stage %s optional=%v, want %v", stage, stage.IsOptional(), optional[stage])
		}
	}
}

func TestPreviousMandatorySkipsOptionalStages(t *testing.T) {
	if got := job.StageTranscription.PreviousMandatory(); got != job.StageDownload {
		t.Fatalf("transcription predecessor = %s, want download", got)
	}
	if got := job.StageDownload.PreviousMandatory(); got != "" {
		t.Fatalf("download predecessor = %s, want none", got)
	}
	if got := job.StageScriptGeneration.PreviousMandatory(); got != job.StageAIProcessing {
		t.Fatalf("script generation predecessor = %s, want ai_processing", got)
	}
}

func TestStateDefaultsToPending(t *testing.T) {
	j := job.New("job-1")
	if got := j.State(job.StageDownload); got != job.StatePending {
		t.Fatalf("unreported stage state = %s, want pending", got)
	}
	j.StageStatus[job.StageDownload] = job.StateActive
	if got := j.State(job.StageDownload); got != job.StateActive {
		t.Fatalf("stage state = %s, want active", got)
	}
}

func TestStageStateTerminal(t *testing.T) {
	terminal := map[job.StageState]bool{
		job.StatePending:  false,
		job.StateActive:   false,
		job.StateComplete: true,
		job.StateFailed:   true,
		job.StateSkipped:  true,
	}
	for state, want := range terminal {
		if state.IsTerminal() != want {
			t.Fatalf("state %s terminal=%v, want %v", state, state.IsTerminal(), want)
		}
	}
	if !job.StateSkipped.IsDone() || job.StateFailed.IsDone() {
		t.Fatal("IsDone should accept skipped and reject failed")
	}
}

func TestArtifactIgnoresBlankURLs(t *testing.T) {
	j := job.New("job-1")
	j.ArtifactURLs[job.ArtifactFinalVideo] = "   "
	if _, ok := j.Artifact(job.ArtifactFinalVideo); ok {
		t.Fatal("blank artifact URL should read as absent")
	}
	j.ArtifactURLs[job.ArtifactFinalVideo] = "https://cdn.example/final.mp4"
	url, ok := j.Artifact(job.ArtifactFinalVideo)
	if !ok || url == "" {
		t.Fatal("expected artifact URL to be present")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	j := job.New("job-1")
	j.StageStatus[job.StageDownload] = job.StateComplete
	cp := j.Clone()
	cp.StageStatus[job.StageDownload] = job.StateFailed
	if j.StageStatus[job.StageDownload] != job.StateComplete {
		t.Fatal("mutating clone leaked into original")
	}
}

func TestMarkerResolvesStageFromAction(t *testing.T) {
	now := time.Now()
	m := job.NewMarker("job-1", job.ActionDownload, now)
	if m.Stage != job.StageDownload {
		t.Fatalf("marker stage = %s, want download", m.Stage)
	}
	m = job.NewMarker("job-1", job.ActionProcessAll, now)
	if m.Stage != "" {
		t.Fatalf("process-all marker should start unpointed, got %s", m.Stage)
	}
	m.Retarget(job.StageTranscription)
	if m.Stage != job.StageTranscription {
		t.Fatalf("retarget failed, stage = %s", m.Stage)
	}
}

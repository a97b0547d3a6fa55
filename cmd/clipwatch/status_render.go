package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"clipwatch/internal/job"
	"clipwatch/internal/pipeline"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"
)

type statusView struct {
	Snapshot *job.Job
	Marker   *job.ProcessingMarker
	Conn     *job.ConnectionState
	Now      time.Time
}

// renderStatus produces the status block for one job: a summary header, the
// per-stage table, and any published artifacts.
func renderStatus(view statusView, colorize bool) string {
	snapshot := view.Snapshot
	now := view.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	title := snapshot.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "Job %s: %s\n", snapshot.ID, title)
	fmt.Fprintf(&b, "Completion: %d%%", int(pipeline.CompletionRatio(snapshot)*100))
	if stage, ok := pipeline.CurrentActiveStage(snapshot); ok {
		fmt.Fprintf(&b, "  current: %s", stage.Label())
	}
	if pipeline.HasFailedStage(snapshot) {
		b.WriteString("  " + paint("some stages failed", ansiRed, colorize))
	}
	b.WriteString("\n")

	if view.Conn != nil {
		fmt.Fprintf(&b, "Push channel: %s", view.Conn.Status)
		if view.Conn.ReconnectAttempts > 0 {
			fmt.Fprintf(&b, " (reconnect attempt %d)", view.Conn.ReconnectAttempts)
		}
		b.WriteString("\n")
	}
	if view.Marker != nil {
		held := now.Sub(view.Marker.StartedAt).Round(time.Second)
		fmt.Fprintf(&b, "In flight: %s (%s, held %s)\n", view.Marker.Action, view.Marker.Stage, held)
	}

	rows := make([][]string, 0, len(job.StageOrder()))
	for _, stage := range job.StageOrder() {
		state := snapshot.State(stage)
		timing := snapshot.Timing(stage)
		started := "-"
		elapsed := "-"
		if timing.StartedAt != nil {
			started = timing.StartedAt.Local().Format("15:04:05")
			end := now
			if timing.FinishedAt != nil {
				end = *timing.FinishedAt
			}
			elapsed = end.Sub(*timing.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			stage.Label(),
			paintState(state, colorize),
			started,
			elapsed,
		})
	}
	b.WriteString(renderTable([]string{"Stage", "State", "Started", "Elapsed"}, rows, 3))
	b.WriteString("\n")

	artifacts := make([][]string, 0, 4)
	for _, kind := range []job.ArtifactKind{
		job.ArtifactOriginal,
		job.ArtifactVoiceRemoved,
		job.ArtifactSynthesizedAudio,
		job.ArtifactFinalVideo,
		job.ArtifactCDNURL,
	} {
		if url, ok := snapshot.Artifact(kind); ok {
			artifacts = append(artifacts, []string{string(kind), url})
		}
	}
	if len(artifacts) > 0 {
		b.WriteString(renderTable([]string{"Artifact", "URL"}, artifacts))
		b.WriteString("\n")
	}
	return b.String()
}

func paintState(state job.StageState, colorize bool) string {
	switch state {
	case job.StateComplete:
		return paint(string(state), ansiGreen, colorize)
	case job.StateFailed:
		return paint(string(state), ansiRed, colorize)
	case job.StateActive:
		return paint(string(state), ansiYellow, colorize)
	case job.StateSkipped:
		return paint(string(state), ansiDim, colorize)
	default:
		return string(state)
	}
}

func paint(s, color string, colorize bool) string {
	if !colorize {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

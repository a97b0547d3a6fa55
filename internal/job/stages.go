package job

import "strings"

// StageName identifies one step of the backend pipeline.
type StageName string

const (
	StageDownload           StageName = "download"
	StageFrameExtraction    StageName = "frame_extraction"
	StageVisualAnalysis     StageName = "visual_analysis"
	StageTranscription      StageName = "transcription"
	StageAIProcessing       StageName = "ai_processing"
	StageEnhancedTranscript StageName = "enhanced_transcript"
	StageScriptGeneration   StageName = "script_generation"
	StageTTSSynthesis       StageName = "tts_synthesis"
	StageFinalVideoAssembly StageName = "final_video_assembly"
	StageCloudinaryUpload   StageName = "cloudinary_upload"
	StageSheetsSync         StageName = "sheets_sync"
)

var canonicalOrder = []StageName{
	StageDownload,
	StageFrameExtraction,
	StageVisualAnalysis,
	StageTranscription,
	StageAIProcessing,
	StageEnhancedTranscript,
	StageScriptGeneration,
	StageTTSSynthesis,
	StageFinalVideoAssembly,
	StageCloudinaryUpload,
	StageSheetsSync,
}

var optionalStages = map[StageName]struct{}{
	StageFrameExtraction:    {},
	StageVisualAnalysis:     {},
	StageEnhancedTranscript: {},
}

// Post-processing stages run only when their prerequisite artifact exists and
// are best-effort from the orchestration point of view.
var postProcessingStages = map[StageName]struct{}{
	StageCloudinaryUpload: {},
	StageSheetsSync:       {},
}

var stageSet = func() map[StageName]struct{} {
	set := make(map[StageName]struct{}, len(canonicalOrder))
	for _, stage := range canonicalOrder {
		set[stage] = struct{}{}
	}
	return set
}()

var stageLabels = map[StageName]string{
	StageDownload:           "Download",
	StageFrameExtraction:    "Frame Extraction",
	StageVisualAnalysis:     "Visual Analysis",
	StageTranscription:      "Transcription",
	StageAIProcessing:       "AI Processing",
	StageEnhancedTranscript: "Enhanced Transcript",
	StageScriptGeneration:   "Script Generation",
	StageTTSSynthesis:       "TTS Synthesis",
	StageFinalVideoAssembly: "Final Assembly",
	StageCloudinaryUpload:   "CDN Upload",
	StageSheetsSync:         "Sheets Sync",
}

// StageOrder returns the canonical pipeline ordering.
func StageOrder() []StageName {
	cp := make([]StageName, len(canonicalOrder))
	copy(cp, canonicalOrder)
	return cp
}

// ParseStage converts a string into a known StageName.
func ParseStage(value string) (StageName, bool) {
	normalized := StageName(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// IsOptional reports whether a stage may be skipped or absent without
// blocking downstream stages.
func (s StageName) IsOptional() bool {
	_, ok := optionalStages[s]
	return ok
}

// IsMandatory reports whether downstream stages require this one to finish.
func (s StageName) IsMandatory() bool {
	return !s.IsOptional()
}

// IsPostProcessing reports whether the stage is a best-effort publishing step.
func (s StageName) IsPostProcessing() bool {
	_, ok := postProcessingStages[s]
	return ok
}

// Label returns the user-facing display name for a stage.
func (s StageName) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// PreviousMandatory returns the nearest mandatory stage preceding s in
// canonical order, or "" when s is the first mandatory stage.
func (s StageName) PreviousMandatory() StageName {
	idx := indexOf(s)
	if idx <= 0 {
		return ""
	}
	for i := idx - 1; i >= 0; i-- {
		if canonicalOrder[i].IsMandatory() {
			return canonicalOrder[i]
		}
	}
	return ""
}

func indexOf(s StageName) int {
	for i, stage := range canonicalOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

package pipeline

import (
	"context"
	"fmt"

	"worker-transcribe/constant"
	"worker-transcribe/entities"
)

// ProgressFunc reports a stage's own progress, 0..100, monotonically
// non-decreasing within one Run call. The orchestrator rescales it into the
// job's global window for that stage.
type ProgressFunc func(percent int)

// Processor transforms one artifact into the next. Implementations must not
// mutate the input artifact and must hold no per-job state between calls.
type Processor interface {
	Run(ctx context.Context, inputPath, outputPath string, progress ProgressFunc) (*StageResult, error)
}

// SpeakerSpan is one diarized span of audio attributed to a single speaker.
type SpeakerSpan struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// TranscriptSegment is one timed span of recognized speech before it is
// persisted as an entities.Segment.
type TranscriptSegment struct {
	Start      float64         `json:"start"`
	End        float64         `json:"end"`
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Speaker    string          `json:"speaker,omitempty"`
	Words      []entities.Word `json:"words,omitempty"`
}

// Transcript is the transcription stage's full output, carried between the
// text stages as a JSON artifact.
type Transcript struct {
	Segments      []TranscriptSegment `json:"segments"`
	Text          string              `json:"text"`
	Language      string              `json:"language"`
	AvgConfidence float64             `json:"avg_confidence"`
}

// ChapterNote is a structural annotation produced by the refine stage.
type ChapterNote struct {
	Title   string  `json:"title"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Summary string  `json:"summary,omitempty"`
}

// StageResult carries whatever a stage derived beyond its output artifact.
// Only the fields relevant to the stage are set.
type StageResult struct {
	OutputPath   string
	Duration     float64
	SpeakerSpans []SpeakerSpan
	SpeakerCount int
	Transcript   *Transcript
	Text         string
	Chapters     []ChapterNote
	Summary      string
}

// ProcessingError is how a Processor reports an unrecoverable condition.
// Transient failures (backend unavailable, timeout) are retried by re-running
// the whole job; permanent ones (corrupt media, empty result) are not.
type ProcessingError struct {
	Stage     constant.StageName
	Transient bool
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

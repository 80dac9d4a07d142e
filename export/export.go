package export

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"worker-transcribe/entities"
)

type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
)

var ErrUnknownFormat = errors.New("unknown export format")

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip"
	case FormatVTT:
		return "text/vtt"
	case FormatJSON:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Text renders the transcript as plain text. The stored final text wins when
// present; otherwise the segment texts are concatenated in order.
func Text(job *entities.Job, segments []*entities.Segment) string {
	if job.TranscriptionText != nil && *job.TranscriptionText != "" {
		return *job.TranscriptionText
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// SRT renders numbered SubRip cues with HH:MM:SS,mmm timecodes.
func SRT(segments []*entities.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n", i+1, timecode(seg.StartTime, ','), timecode(seg.EndTime, ','))
		if seg.SpeakerLabel != nil {
			fmt.Fprintf(&b, "[%s] ", *seg.SpeakerLabel)
		}
		b.WriteString(seg.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// VTT renders WebVTT cues with HH:MM:SS.mmm timecodes and speaker voice tags.
func VTT(segments []*entities.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s --> %s\n", timecode(seg.StartTime, '.'), timecode(seg.EndTime, '.'))
		if seg.SpeakerLabel != nil {
			fmt.Fprintf(&b, "<v %s>", *seg.SpeakerLabel)
		}
		b.WriteString(seg.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Document is the structured export: the job's result fields plus every
// segment with its word-level timestamps and the chapter outline.
type Document struct {
	ID                uuid.UUID           `json:"id"`
	OriginalFilename  string              `json:"original_filename"`
	Duration          *float64            `json:"duration"`
	DetectedLanguage  *string             `json:"detected_language"`
	SpeakerCount      *int                `json:"speaker_count"`
	WordCount         *int                `json:"word_count"`
	AverageConfidence *float64            `json:"average_confidence"`
	Text              string              `json:"text"`
	Summary           *string             `json:"summary,omitempty"`
	Segments          []DocumentSegment   `json:"segments"`
	Chapters          []*entities.Chapter `json:"chapters,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at"`
}

type DocumentSegment struct {
	Index      int             `json:"index"`
	Start      float64         `json:"start"`
	End        float64         `json:"end"`
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Speaker    *string         `json:"speaker,omitempty"`
	Words      []entities.Word `json:"words,omitempty"`
}

func BuildDocument(job *entities.Job, segments []*entities.Segment, chapters []*entities.Chapter) *Document {
	doc := &Document{
		ID:                job.ID,
		OriginalFilename:  job.OriginalFilename,
		Duration:          job.Duration,
		DetectedLanguage:  job.DetectedLanguage,
		SpeakerCount:      job.SpeakerCount,
		WordCount:         job.WordCount,
		AverageConfidence: job.AverageConfidence,
		Text:              Text(job, segments),
		Summary:           job.Summary,
		Segments:          make([]DocumentSegment, 0, len(segments)),
		Chapters:          chapters,
		CompletedAt:       job.CompletedAt,
	}
	for _, seg := range segments {
		doc.Segments = append(doc.Segments, DocumentSegment{
			Index:      seg.SegmentIndex,
			Start:      seg.StartTime,
			End:        seg.EndTime,
			Text:       seg.Text,
			Confidence: seg.Confidence,
			Speaker:    seg.SpeakerLabel,
			Words:      seg.Words,
		})
	}
	return doc
}

// timecode formats seconds as HH:MM:SS followed by a millisecond part, with
// sep between the seconds and milliseconds.
func timecode(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms%1000)
}

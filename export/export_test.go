package export

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"worker-transcribe/entities"
)

func sampleSegments() []*entities.Segment {
	jobID := uuid.New()
	return []*entities.Segment{
		{ID: uuid.New(), JobID: jobID, SegmentIndex: 0, StartTime: 0.0, EndTime: 1.5, Text: "oi"},
		{ID: uuid.New(), JobID: jobID, SegmentIndex: 1, StartTime: 1.5, EndTime: 3.2, Text: "tudo bem"},
	}
}

func TestSRTTimecodes(t *testing.T) {
	got := SRT(sampleSegments())
	want := "1\n" +
		"00:00:00,000 --> 00:00:01,500\n" +
		"oi\n" +
		"\n" +
		"2\n" +
		"00:00:01,500 --> 00:00:03,200\n" +
		"tudo bem\n"
	if got != want {
		t.Fatalf("srt output:\n%q\nwant:\n%q", got, want)
	}
}

func TestVTTTimecodes(t *testing.T) {
	got := VTT(sampleSegments())
	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:01.500\n" +
		"oi\n" +
		"\n" +
		"00:00:01.500 --> 00:00:03.200\n" +
		"tudo bem\n"
	if got != want {
		t.Fatalf("vtt output:\n%q\nwant:\n%q", got, want)
	}
}

func TestSRTSpeakerLabels(t *testing.T) {
	segments := sampleSegments()
	speaker := "SPEAKER_00"
	segments[0].SpeakerLabel = &speaker

	srt := SRT(segments)
	if !strings.Contains(srt, "[SPEAKER_00] oi") {
		t.Fatalf("srt missing speaker prefix:\n%s", srt)
	}

	vtt := VTT(segments)
	if !strings.Contains(vtt, "<v SPEAKER_00>oi") {
		t.Fatalf("vtt missing voice tag:\n%s", vtt)
	}
}

func TestTimecodeRollover(t *testing.T) {
	tests := []struct {
		seconds float64
		sep     byte
		want    string
	}{
		{0, ',', "00:00:00,000"},
		{59.999, ',', "00:00:59,999"},
		{60, ',', "00:01:00,000"},
		{3661.25, '.', "01:01:01.250"},
		{-1, ',', "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := timecode(tt.seconds, tt.sep); got != tt.want {
			t.Errorf("timecode(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTextPrefersStoredResult(t *testing.T) {
	stored := "Oi, tudo bem."
	job := &entities.Job{TranscriptionText: &stored}
	if got := Text(job, sampleSegments()); got != stored {
		t.Fatalf("text = %q", got)
	}

	job.TranscriptionText = nil
	if got := Text(job, sampleSegments()); got != "oi tudo bem" {
		t.Fatalf("fallback text = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"txt", "SRT", "vtt", "json"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("ParseFormat accepted unknown format")
	}
}

func TestBuildDocumentCarriesWords(t *testing.T) {
	segments := sampleSegments()
	segments[0].Words = []entities.Word{{Word: "oi", Start: 0, End: 1.5, Confidence: 0.9}}
	lang := "pt"
	job := &entities.Job{ID: segments[0].JobID, DetectedLanguage: &lang}

	doc := BuildDocument(job, segments, nil)
	if len(doc.Segments) != 2 {
		t.Fatalf("segments = %d", len(doc.Segments))
	}
	if len(doc.Segments[0].Words) != 1 || doc.Segments[0].Words[0].Word != "oi" {
		t.Fatalf("words = %+v", doc.Segments[0].Words)
	}
	if doc.DetectedLanguage == nil || *doc.DetectedLanguage != "pt" {
		t.Fatalf("language = %v", doc.DetectedLanguage)
	}
}

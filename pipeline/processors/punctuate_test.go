package processors

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"worker-transcribe/pipeline"
)

func TestPunctuateRules(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello world", "Hello world."},
		{"  spaced   out  text  ", "Spaced out text."},
		{"first. second sentence", "First. Second sentence."},
		{"already done!", "Already done!"},
		{"is it a question?", "Is it a question?"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := punctuate(tc.in); got != tc.want {
			t.Errorf("punctuate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPunctuatorRunRewritesArtifact(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.json")
	out := filepath.Join(dir, "punctuated.json")

	raw := &pipeline.Transcript{
		Segments: []pipeline.TranscriptSegment{
			{Start: 0, End: 1.5, Text: "oi", Confidence: -0.2},
		},
		Text:     "oi tudo bem",
		Language: "pt",
	}
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(in, data, 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	var lastProgress int
	res, err := NewPunctuator().Run(context.Background(), in, out, func(p int) {
		if p < lastProgress {
			t.Errorf("progress went backwards: %d after %d", p, lastProgress)
		}
		lastProgress = p
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Text != "Oi tudo bem." {
		t.Fatalf("text = %q", res.Text)
	}
	if lastProgress != 100 {
		t.Fatalf("final progress = %d", lastProgress)
	}

	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output artifact: %v", err)
	}
	var updated pipeline.Transcript
	if err := json.Unmarshal(written, &updated); err != nil {
		t.Fatalf("unmarshal output artifact: %v", err)
	}
	if updated.Text != "Oi tudo bem." {
		t.Fatalf("artifact text = %q", updated.Text)
	}
	if len(updated.Segments) != 1 || updated.Segments[0].Text != "oi" {
		t.Fatalf("segments were mutated: %+v", updated.Segments)
	}
}

func TestPunctuatorRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := NewPunctuator().Run(context.Background(), filepath.Join(dir, "missing.json"), filepath.Join(dir, "out.json"), func(int) {})
	if err == nil {
		t.Fatal("expected error for missing input artifact")
	}
}

package processors

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadOutputFillsDerivedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.json")
	raw := `{
		"language": "pt",
		"segments": [
			{"start": 0.0, "end": 1.5, "text": " oi ", "confidence": -0.2},
			{"start": 1.5, "end": 3.2, "text": "tudo bem", "confidence": -0.4}
		]
	}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write output: %v", err)
	}

	tr := NewTranscriber("whisper", "/models", "base", "pt", "cpu")
	transcript, err := tr.readOutput(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	if transcript.Text != "oi tudo bem" {
		t.Fatalf("text = %q", transcript.Text)
	}
	if transcript.Language != "pt" {
		t.Fatalf("language = %q", transcript.Language)
	}
	want := (-0.2 + -0.4) / 2
	if transcript.AvgConfidence != want {
		t.Fatalf("avg confidence = %v, want %v", transcript.AvgConfidence, want)
	}
}

func TestReadOutputRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("write output: %v", err)
	}

	tr := NewTranscriber("whisper", "/models", "base", "auto", "cpu")
	if _, err := tr.readOutput(path); err == nil {
		t.Fatal("expected parse error")
	}
}

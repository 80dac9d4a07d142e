package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

// Transcriber runs the speech-to-text backend over the prepared audio and
// normalizes its JSON output into the pipeline's transcript artifact.
type Transcriber struct {
	bin       string
	modelDir  string
	modelSize string
	language  string
	device    string
}

func NewTranscriber(bin, modelDir, modelSize, language, device string) *Transcriber {
	return &Transcriber{
		bin:       bin,
		modelDir:  modelDir,
		modelSize: modelSize,
		language:  language,
		device:    device,
	}
}

func (t *Transcriber) Run(ctx context.Context, inputPath, outputPath string, progress pipeline.ProgressFunc) (*pipeline.StageResult, error) {
	progress(5)

	args := []string{
		"--model", filepath.Join(t.modelDir, t.modelSize),
		"--device", t.device,
		"--word-timestamps",
		"--output", outputPath,
	}
	if t.language != "" && t.language != "auto" {
		args = append(args, "--language", t.language)
	}
	args = append(args, inputPath)

	if err := runCommand(ctx, constant.StageTranscription, t.bin, args...); err != nil {
		return nil, err
	}
	progress(85)

	transcript, err := t.readOutput(outputPath)
	if err != nil {
		return nil, err
	}

	if len(transcript.Segments) == 0 {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageTranscription,
			Err:   errors.New("empty transcription result"),
		}
	}

	// Rewrite the artifact in the canonical transcript shape the text stages
	// consume.
	if err := writeTranscript(outputPath, transcript); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageTranscription,
			Err:   err,
		}
	}

	progress(100)
	return &pipeline.StageResult{OutputPath: outputPath, Transcript: transcript}, nil
}

func (t *Transcriber) readOutput(path string) (*pipeline.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageTranscription,
			Err:   fmt.Errorf("read transcription output: %w", err),
		}
	}

	var transcript pipeline.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageTranscription,
			Err:   fmt.Errorf("parse transcription output: %w", err),
		}
	}

	if transcript.Text == "" {
		parts := make([]string, 0, len(transcript.Segments))
		for _, seg := range transcript.Segments {
			parts = append(parts, strings.TrimSpace(seg.Text))
		}
		transcript.Text = strings.Join(parts, " ")
	}
	if transcript.AvgConfidence == 0 && len(transcript.Segments) > 0 {
		total := 0.0
		for _, seg := range transcript.Segments {
			total += seg.Confidence
		}
		transcript.AvgConfidence = total / float64(len(transcript.Segments))
	}

	return &transcript, nil
}

func writeTranscript(path string, transcript *pipeline.Transcript) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

func readTranscript(path string, stage constant.StageName) (*pipeline.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: stage,
			Err:   fmt.Errorf("read transcript artifact: %w", err),
		}
	}
	var transcript pipeline.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: stage,
			Err:   fmt.Errorf("parse transcript artifact: %w", err),
		}
	}
	return &transcript, nil
}

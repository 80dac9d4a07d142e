package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

// Diarizer shells out to the speaker-diarization backend, which writes a JSON
// span list. Speaker labels come back as SPEAKER_00, SPEAKER_01, ...
type Diarizer struct {
	bin   string
	token string
}

func NewDiarizer(bin, token string) *Diarizer {
	return &Diarizer{bin: bin, token: token}
}

type diarizationOutput struct {
	Segments     []pipeline.SpeakerSpan `json:"segments"`
	SpeakerCount int                    `json:"speaker_count"`
}

func (d *Diarizer) Run(ctx context.Context, inputPath, outputPath string, progress pipeline.ProgressFunc) (*pipeline.StageResult, error) {
	progress(10)

	cmd := exec.CommandContext(ctx, d.bin, "--input", inputPath, "--output", outputPath)
	cmd.Env = append(os.Environ(), "HUGGINGFACE_TOKEN="+d.token)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &pipeline.ProcessingError{
			Stage:     constant.StageDiarization,
			Transient: ctx.Err() != nil,
			Err:       fmt.Errorf("%s: %w: %s", d.bin, err, tail(output, 500)),
		}
	}
	progress(80)

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageDiarization,
			Err:   fmt.Errorf("read diarization output: %w", err),
		}
	}

	var result diarizationOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageDiarization,
			Err:   fmt.Errorf("parse diarization output: %w", err),
		}
	}

	if result.SpeakerCount == 0 {
		seen := map[string]struct{}{}
		for _, span := range result.Segments {
			seen[span.Speaker] = struct{}{}
		}
		result.SpeakerCount = len(seen)
	}

	progress(100)
	return &pipeline.StageResult{
		OutputPath:   outputPath,
		SpeakerSpans: result.Segments,
		SpeakerCount: result.SpeakerCount,
	}, nil
}

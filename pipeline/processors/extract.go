package processors

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog"
	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

// AudioExtractor pulls the audio track out of the original media and
// normalizes it to 16 kHz mono WAV, the format every later stage expects.
type AudioExtractor struct{}

func NewAudioExtractor() *AudioExtractor {
	return &AudioExtractor{}
}

func (e *AudioExtractor) Run(ctx context.Context, inputPath, outputPath string, progress pipeline.ProgressFunc) (*pipeline.StageResult, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageAudioExtraction,
			Err:   fmt.Errorf("input not found: %w", err),
		}
	}
	progress(10)

	originalDuration, err := probeDuration(ctx, constant.StageAudioExtraction, inputPath)
	if err != nil {
		return nil, err
	}
	progress(30)

	err = runCommand(ctx, constant.StageAudioExtraction, "ffmpeg",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-af", "volume=1.5",
		"-y",
		outputPath,
	)
	if err != nil {
		return nil, err
	}
	progress(70)

	duration, err := probeDuration(ctx, constant.StageAudioExtraction, outputPath)
	if err != nil {
		return nil, err
	}

	// A large deviation from the container duration usually means a truncated
	// extraction; surface it in the logs but let the run continue.
	if originalDuration > 0 {
		deviation := math.Abs(originalDuration-duration) / originalDuration * 100
		if deviation > 5 {
			zerolog.Ctx(ctx).Warn().
				Float64("original_duration", originalDuration).
				Float64("extracted_duration", duration).
				Msg("extracted audio duration deviates from container duration")
		}
	}

	progress(100)
	return &pipeline.StageResult{OutputPath: outputPath, Duration: duration}, nil
}

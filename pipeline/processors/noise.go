package processors

import (
	"context"

	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

// NoiseReducer runs the speech band-pass and denoise filter chain over the
// extracted audio: 80 Hz to 8 kHz covers the voice band, afftdn takes out
// stationary background noise.
type NoiseReducer struct{}

func NewNoiseReducer() *NoiseReducer {
	return &NoiseReducer{}
}

func (r *NoiseReducer) Run(ctx context.Context, inputPath, outputPath string, progress pipeline.ProgressFunc) (*pipeline.StageResult, error) {
	progress(10)

	err := runCommand(ctx, constant.StageNoiseReduction, "ffmpeg",
		"-i", inputPath,
		"-af", "highpass=f=80,lowpass=f=8000,afftdn=nf=-25",
		"-y",
		outputPath,
	)
	if err != nil {
		return nil, err
	}

	progress(100)
	return &pipeline.StageResult{OutputPath: outputPath}, nil
}

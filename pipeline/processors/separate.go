package processors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

// VocalSeparator isolates the vocal stem from music-heavy audio with demucs.
// Its failure is never fatal to a job: the orchestrator falls back to the
// noise-reduced audio.
type VocalSeparator struct {
	bin string
}

func NewVocalSeparator(bin string) *VocalSeparator {
	return &VocalSeparator{bin: bin}
}

func (s *VocalSeparator) Run(ctx context.Context, inputPath, outputPath string, progress pipeline.ProgressFunc) (*pipeline.StageResult, error) {
	progress(10)

	stemRoot := filepath.Join(filepath.Dir(outputPath), "stems")
	err := runCommand(ctx, constant.StageVocalSeparation, s.bin,
		"--two-stems=vocals",
		"-n", "htdemucs",
		"-o", stemRoot,
		inputPath,
	)
	if err != nil {
		return nil, err
	}
	progress(80)

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	stem := filepath.Join(stemRoot, "htdemucs", base, "vocals.wav")
	if _, statErr := os.Stat(stem); statErr != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageVocalSeparation,
			Err:   fmt.Errorf("vocals stem missing: %w", statErr),
		}
	}
	if err := os.Rename(stem, outputPath); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageVocalSeparation,
			Err:   fmt.Errorf("move vocals stem: %w", err),
		}
	}
	if err := os.RemoveAll(stemRoot); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StageVocalSeparation,
			Err:   fmt.Errorf("remove stem directory: %w", err),
		}
	}

	progress(100)
	return &pipeline.StageResult{OutputPath: outputPath}, nil
}

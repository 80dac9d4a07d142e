package processors

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

// runCommand executes an external tool and folds its combined output into the
// stage error on failure. A kill caused by the attempt deadline is reported
// as transient so the whole-run retry policy applies.
func runCommand(ctx context.Context, stage constant.StageName, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &pipeline.ProcessingError{
			Stage:     stage,
			Transient: ctx.Err() != nil,
			Err:       fmt.Errorf("%s: %w: %s", name, err, tail(output, 500)),
		}
	}
	return nil
}

// probeDuration asks ffprobe for a media file's duration in seconds.
func probeDuration(ctx context.Context, stage constant.StageName, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, &pipeline.ProcessingError{
			Stage:     stage,
			Transient: ctx.Err() != nil,
			Err:       fmt.Errorf("ffprobe %s: %w", path, err),
		}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, &pipeline.ProcessingError{
			Stage: stage,
			Err:   fmt.Errorf("ffprobe %s: unparsable duration %q", path, strings.TrimSpace(string(output))),
		}
	}
	return duration, nil
}

func tail(output []byte, n int) string {
	s := strings.TrimSpace(string(output))
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"worker-transcribe/constant"
	"worker-transcribe/repository"
)

// ProgressTracker records a job's current percent and stage. Writes are
// durable and immediately visible to status readers.
type ProgressTracker interface {
	Set(ctx context.Context, jobID uuid.UUID, percent int, stage constant.StageName)
}

// repoTracker persists progress through the job repository. A failed write is
// logged and dropped: progress is bookkeeping, not an excuse to abort a run.
type repoTracker struct {
	repo repository.JobRepository
}

func NewTracker(repo repository.JobRepository) ProgressTracker {
	return &repoTracker{repo: repo}
}

func (t *repoTracker) Set(ctx context.Context, jobID uuid.UUID, percent int, stage constant.StageName) {
	if err := t.repo.SetProgress(ctx, jobID, percent, stage); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("job_id", jobID.String()).
			Int("progress", percent).
			Str("stage", stage.String()).
			Msg("failed to update progress")
		return
	}
	zerolog.Ctx(ctx).Debug().
		Str("job_id", jobID.String()).
		Int("progress", percent).
		Str("stage", stage.String()).
		Msg("progress updated")
}

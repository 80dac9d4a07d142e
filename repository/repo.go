package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"worker-transcribe/constant"
	"worker-transcribe/entities"
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrJobProcessing = errors.New("job is processing")
)

type JobRepository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB
	FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	ClaimJob(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error)
	MarkPending(ctx context.Context, id uuid.UUID) error
	RequeueFailed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, cause string, completedAt time.Time) error
	CompleteJob(ctx context.Context, id uuid.UUID, text string, wordCount int, processingTime float64, completedAt time.Time) error
	SetProgress(ctx context.Context, id uuid.UUID, percent int, stage constant.StageName) error
	SetDuration(ctx context.Context, id uuid.UUID, seconds float64) error
	SetSpeakerCount(ctx context.Context, id uuid.UUID, count int) error
	SetTranscriptionMeta(ctx context.Context, id uuid.UUID, language string, avgConfidence float64) error
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error
	ReplaceSegments(ctx context.Context, id uuid.UUID, segments []*entities.Segment) error
	CreateChapters(ctx context.Context, id uuid.UUID, chapters []*entities.Chapter) error
	SegmentsByJobId(ctx context.Context, id uuid.UUID) ([]*entities.Segment, error)
	ChaptersByJobId(ctx context.Context, id uuid.UUID) ([]*entities.Chapter, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) JobRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().Transaction(func(tx *gorm.DB) error {
		return callback(ctx)
	}, opts...)
}

func (r *repo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.GetDB().WithContext(ctx).First(job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	return job, nil
}

// ClaimJob moves a pending job to processing. The conditional update is what
// keeps two concurrent attempts on the same job id from both reaching
// processing: only one of them flips the row.
func (r *repo) ClaimJob(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error) {
	res := r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ? AND status = ?", id, constant.JobStatusPending).
		Updates(map[string]interface{}{
			"status":        constant.JobStatusProcessing,
			"started_at":    startedAt,
			"progress":      0,
			"current_stage": nil,
			"error_message": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkPending puts a transiently failed job back in line for another attempt
// and counts the attempt that just failed.
func (r *repo) MarkPending(ctx context.Context, id uuid.UUID) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ? AND status = ?", id, constant.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":   constant.JobStatusPending,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

// RequeueFailed resets a terminally failed job so it can be submitted again
// from scratch, with its attempt count reset.
func (r *repo) RequeueFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ? AND status = ?", id, constant.JobStatusFailed).
		Updates(map[string]interface{}{
			"status":        constant.JobStatusPending,
			"attempts":      0,
			"progress":      0,
			"current_stage": nil,
			"error_message": nil,
			"started_at":    nil,
			"completed_at":  nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, id uuid.UUID, cause string, completedAt time.Time) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ? AND status = ?", id, constant.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":        constant.JobStatusFailed,
			"error_message": cause,
			"completed_at":  completedAt,
		}).Error
}

func (r *repo) CompleteJob(ctx context.Context, id uuid.UUID, text string, wordCount int, processingTime float64, completedAt time.Time) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ? AND status = ?", id, constant.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":                  constant.JobStatusCompleted,
			"progress":                100,
			"current_stage":           nil,
			"transcription_text":      text,
			"word_count":              wordCount,
			"processing_time_seconds": processingTime,
			"completed_at":            completedAt,
		}).Error
}

func (r *repo) SetProgress(ctx context.Context, id uuid.UUID, percent int, stage constant.StageName) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":      percent,
			"current_stage": stage.String(),
		}).Error
}

func (r *repo) SetDuration(ctx context.Context, id uuid.UUID, seconds float64) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ?", id).Update("duration", seconds).Error
}

func (r *repo) SetSpeakerCount(ctx context.Context, id uuid.UUID, count int) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ?", id).Update("speaker_count", count).Error
}

func (r *repo) SetTranscriptionMeta(ctx context.Context, id uuid.UUID, language string, avgConfidence float64) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"detected_language":  language,
			"average_confidence": avgConfidence,
		}).Error
}

func (r *repo) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Job{}).
		Where("id = ?", id).Update("summary", summary).Error
}

// ReplaceSegments drops any segments left over from an earlier attempt before
// writing the new set, so a retried job never ends up with duplicate rows.
func (r *repo) ReplaceSegments(ctx context.Context, id uuid.UUID, segments []*entities.Segment) error {
	return r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&entities.Segment{}).Error; err != nil {
			return err
		}
		if len(segments) == 0 {
			return nil
		}
		return tx.Create(segments).Error
	})
}

func (r *repo) CreateChapters(ctx context.Context, id uuid.UUID, chapters []*entities.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}
	return r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&entities.Chapter{}).Error; err != nil {
			return err
		}
		return tx.Create(chapters).Error
	})
}

func (r *repo) SegmentsByJobId(ctx context.Context, id uuid.UUID) ([]*entities.Segment, error) {
	var segments []*entities.Segment
	err := r.GetDB().WithContext(ctx).Where("job_id = ?", id).Order("segment_index ASC").Find(&segments).Error
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (r *repo) ChaptersByJobId(ctx context.Context, id uuid.UUID) ([]*entities.Chapter, error) {
	var chapters []*entities.Chapter
	err := r.GetDB().WithContext(ctx).Where("job_id = ?", id).Order("chapter_index ASC").Find(&chapters).Error
	if err != nil {
		return nil, err
	}
	return chapters, nil
}

// DeleteJob removes a job and everything it owns. Deleting while an attempt
// is in flight is refused so the attempt never writes into a vacuum.
func (r *repo) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job := &entities.Job{}
		err := tx.First(job, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}
		if job.Status == constant.JobStatusProcessing {
			return ErrJobProcessing
		}
		if err := tx.Where("job_id = ?", id).Delete(&entities.Segment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", id).Delete(&entities.Chapter{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Job{}, "id = ?", id).Error
	})
}

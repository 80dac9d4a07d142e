package entities

import (
	"time"

	"github.com/google/uuid"
	"worker-transcribe/constant"
)

type Job struct {
	ID uuid.UUID `json:"id"`

	OriginalFilename string            `json:"original_filename"`
	FileType         constant.FileType `json:"file_type"`
	FileSize         int64             `json:"file_size"`
	StoragePath      string            `json:"storage_path"`
	Duration         *float64          `json:"duration"`

	Status       constant.JobStatus `json:"status"`
	Progress     int                `json:"progress"`
	CurrentStage *string            `json:"current_stage"`
	ErrorMessage *string            `json:"error_message"`
	Attempts     int                `json:"attempts"`

	Language             string `json:"language"`
	ModelSize            string `json:"model_size"`
	EnableDiarization    bool   `json:"enable_diarization"`
	EnablePostProcessing bool   `json:"enable_post_processing"`
	CallbackTarget       string `json:"callback_target"`

	TranscriptionText     *string  `json:"transcription_text"`
	Summary               *string  `json:"summary"`
	WordCount             *int     `json:"word_count"`
	AverageConfidence     *float64 `json:"average_confidence"`
	DetectedLanguage      *string  `json:"detected_language"`
	SpeakerCount          *int     `json:"speaker_count"`
	ProcessingTimeSeconds *float64 `json:"processing_time_seconds"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (Job) TableName() string {
	return "jobs"
}

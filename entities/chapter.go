package entities

import (
	"github.com/google/uuid"
)

type Chapter struct {
	ID           uuid.UUID `json:"id"`
	JobID        uuid.UUID `json:"job_id"`
	ChapterIndex int       `json:"chapter_index"`
	Title        string    `json:"title"`
	StartTime    float64   `json:"start_time"`
	EndTime      float64   `json:"end_time"`
	Summary      *string   `json:"summary"`
}

func (Chapter) TableName() string {
	return "chapters"
}

package entities

import (
	"github.com/google/uuid"
)

// Word is one word-level timestamp inside a segment. Stored as part of the
// segment's JSON words column.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

type Segment struct {
	ID           uuid.UUID `json:"id"`
	JobID        uuid.UUID `json:"job_id"`
	SegmentIndex int       `json:"segment_index"`
	StartTime    float64   `json:"start_time"`
	EndTime      float64   `json:"end_time"`
	Text         string    `json:"text"`
	Confidence   float64   `json:"confidence"`
	SpeakerLabel *string   `json:"speaker_label"`
	Words        []Word    `json:"words" gorm:"serializer:json"`
}

func (Segment) TableName() string {
	return "segments"
}

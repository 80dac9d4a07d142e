package dto

import (
	"time"

	"github.com/google/uuid"
)

type JobMessage struct {
	JobId      uuid.UUID `json:"jobId"`
	ObjectPath string    `json:"objectPath"`
	FileName   string    `json:"fileName"`
}

type WebhookPayload struct {
	Event     string         `json:"event"`
	JobId     uuid.UUID      `json:"job_id"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

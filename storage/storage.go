package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Storage moves artifacts between the durable store and a worker's local
// workspace. Object names are opaque references owned by the intake side,
// except transcript artifacts, whose names are derived from the job id.
type Storage interface {
	Fetch(ctx context.Context, objectName, localPath string) error
	Store(ctx context.Context, localPath, objectName string) error
	Delete(ctx context.Context, objectName string) error
}

// TranscriptObject is the object name under which a job's final transcript
// artifact is kept. Both the upload on completion and the cleanup on job
// deletion resolve the name through here.
func TranscriptObject(jobID uuid.UUID) string {
	return fmt.Sprintf("transcripts/%s.json", jobID)
}

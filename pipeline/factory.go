package pipeline

import (
	"worker-transcribe/constant"
	"worker-transcribe/entities"
)

// Factory builds a fresh Processor per stage invocation. Construction fails
// fast with a capability error when a stage's backend is not available,
// instead of deferring the failure to first use.
type Factory interface {
	New(stage constant.StageName, job *entities.Job) (Processor, error)
}

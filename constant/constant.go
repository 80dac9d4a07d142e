package constant

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) String() string {
	return string(s)
}

type StageName string

const (
	StageAudioExtraction StageName = "audio_extraction"
	StageNoiseReduction  StageName = "noise_reduction"
	StageVocalSeparation StageName = "vocal_separation"
	StageDiarization     StageName = "diarization"
	StageTranscription   StageName = "transcription"
	StagePunctuation     StageName = "punctuation"
	StagePostProcessing  StageName = "post_processing"
	StageFinalization    StageName = "finalization"
)

func (s StageName) String() string {
	return string(s)
}

type Partition string

const (
	PartitionAccelerator Partition = "accelerator"
	PartitionGeneral     Partition = "general"
)

type EventType string

const (
	EventTranscriptionCompleted EventType = "transcription.completed"
	EventTranscriptionFailed    EventType = "transcription.failed"
)

type FileType string

const (
	FileTypeAudio FileType = "audio"
	FileTypeVideo FileType = "video"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

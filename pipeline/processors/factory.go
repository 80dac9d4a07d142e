package processors

import (
	"fmt"
	"os/exec"

	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/entities"
	"worker-transcribe/pipeline"
)

// Factory builds stage processors from worker configuration. Mandatory
// backends are verified once at construction; optional capabilities are
// checked when a plan actually asks for them, so a missing optional backend
// surfaces as a clear capability error instead of a mid-stage crash.
type Factory struct {
	pipeline config.Pipeline
	openai   config.OpenAI
}

func NewFactory(pipelineCfg config.Pipeline, openaiCfg config.OpenAI) (*Factory, error) {
	for _, bin := range []string{"ffmpeg", "ffprobe", pipelineCfg.WhisperBin} {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, fmt.Errorf("required backend %q not found: %w", bin, err)
		}
	}
	return &Factory{
		pipeline: pipelineCfg,
		openai:   openaiCfg,
	}, nil
}

func (f *Factory) New(stage constant.StageName, job *entities.Job) (pipeline.Processor, error) {
	switch stage {
	case constant.StageAudioExtraction:
		return NewAudioExtractor(), nil
	case constant.StageNoiseReduction:
		return NewNoiseReducer(), nil
	case constant.StageVocalSeparation:
		if _, err := exec.LookPath(f.pipeline.DemucsBin); err != nil {
			return nil, fmt.Errorf("vocal separation capability unavailable: %w", err)
		}
		return NewVocalSeparator(f.pipeline.DemucsBin), nil
	case constant.StageDiarization:
		if _, err := exec.LookPath(f.pipeline.DiarizeBin); err != nil {
			return nil, fmt.Errorf("diarization capability unavailable: %w", err)
		}
		if f.pipeline.HuggingFaceToken == "" {
			return nil, fmt.Errorf("diarization capability unavailable: missing huggingface token")
		}
		return NewDiarizer(f.pipeline.DiarizeBin, f.pipeline.HuggingFaceToken), nil
	case constant.StageTranscription:
		return NewTranscriber(
			f.pipeline.WhisperBin,
			f.pipeline.WhisperModelDir,
			job.ModelSize,
			job.Language,
			f.pipeline.ComputeTarget,
		), nil
	case constant.StagePunctuation:
		return NewPunctuator(), nil
	case constant.StagePostProcessing:
		if f.openai.APIKey == "" {
			return nil, fmt.Errorf("post-processing capability unavailable: missing api key")
		}
		return NewRefiner(f.openai), nil
	}
	return nil, fmt.Errorf("no processor for stage %q", stage)
}

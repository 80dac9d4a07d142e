package pipeline

import (
	"worker-transcribe/constant"
	"worker-transcribe/entities"
)

// Features are worker-wide toggles, as opposed to per-job configuration.
type Features struct {
	VocalSeparation bool
}

// Stage is one entry of a job's plan. Weight is the stage's relative share of
// the global progress bar; windows are computed over the active set only, so
// skipping an optional stage never leaves a hole in [0,100].
type Stage struct {
	Name     constant.StageName
	Optional bool
	Weight   int
}

// Window is a stage's slice of the job-global progress bar.
type Window struct {
	Start int
	End   int
}

// Scale maps a stage-local percent (0..100) into the window.
func (w Window) Scale(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return w.Start + (w.End-w.Start)*percent/100
}

// BuildPlan derives the ordered list of active stages from job configuration
// and worker features. The backbone is fixed; optional stages are present
// only when their gate is on.
func BuildPlan(job *entities.Job, features Features) []Stage {
	plan := []Stage{
		{Name: constant.StageAudioExtraction, Weight: 15},
		{Name: constant.StageNoiseReduction, Weight: 10},
	}

	if features.VocalSeparation {
		plan = append(plan, Stage{Name: constant.StageVocalSeparation, Optional: true, Weight: 10})
	}
	if job.EnableDiarization {
		plan = append(plan, Stage{Name: constant.StageDiarization, Optional: true, Weight: 10})
	}

	plan = append(plan,
		Stage{Name: constant.StageTranscription, Weight: 30},
		Stage{Name: constant.StagePunctuation, Weight: 10},
	)

	if job.EnablePostProcessing {
		plan = append(plan, Stage{Name: constant.StagePostProcessing, Weight: 10})
	}

	plan = append(plan, Stage{Name: constant.StageFinalization, Weight: 5})

	return plan
}

// Windows assigns each plan entry a contiguous share of [0,100], proportional
// to its weight. The last window always ends at exactly 100.
func Windows(plan []Stage) []Window {
	total := 0
	for _, st := range plan {
		total += st.Weight
	}

	windows := make([]Window, len(plan))
	acc := 0
	start := 0
	for i, st := range plan {
		acc += st.Weight
		end := 100 * acc / total
		windows[i] = Window{Start: start, End: end}
		start = end
	}
	return windows
}

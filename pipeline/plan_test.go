package pipeline

import (
	"testing"

	"worker-transcribe/constant"
	"worker-transcribe/entities"
)

func TestWindowsTileProgressBar(t *testing.T) {
	cases := []struct {
		name        string
		diarization bool
		post        bool
		separation  bool
	}{
		{"all stages", true, true, true},
		{"backbone only", false, false, false},
		{"diarization only", true, false, false},
		{"post only", false, true, false},
		{"separation only", false, false, true},
		{"diarization and post", true, true, false},
		{"separation and diarization", true, false, true},
		{"separation and post", false, true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := &entities.Job{
				EnableDiarization:    tc.diarization,
				EnablePostProcessing: tc.post,
			}
			plan := BuildPlan(job, Features{VocalSeparation: tc.separation})
			windows := Windows(plan)

			if len(windows) != len(plan) {
				t.Fatalf("windows = %d, plan = %d", len(windows), len(plan))
			}
			if windows[0].Start != 0 {
				t.Fatalf("first window starts at %d", windows[0].Start)
			}
			if windows[len(windows)-1].End != 100 {
				t.Fatalf("last window ends at %d", windows[len(windows)-1].End)
			}
			for i := 1; i < len(windows); i++ {
				if windows[i].Start != windows[i-1].End {
					t.Fatalf("window %d starts at %d, previous ends at %d",
						i, windows[i].Start, windows[i-1].End)
				}
			}
			for i, w := range windows {
				if w.End <= w.Start {
					t.Fatalf("window %d (%s) is empty: %+v", i, plan[i].Name, w)
				}
			}
		})
	}
}

func TestBuildPlanBackboneOrder(t *testing.T) {
	job := &entities.Job{EnableDiarization: true, EnablePostProcessing: true}
	plan := BuildPlan(job, Features{VocalSeparation: true})

	want := []constant.StageName{
		constant.StageAudioExtraction,
		constant.StageNoiseReduction,
		constant.StageVocalSeparation,
		constant.StageDiarization,
		constant.StageTranscription,
		constant.StagePunctuation,
		constant.StagePostProcessing,
		constant.StageFinalization,
	}
	if len(plan) != len(want) {
		t.Fatalf("plan length = %d, want %d", len(plan), len(want))
	}
	for i, name := range want {
		if plan[i].Name != name {
			t.Fatalf("plan[%d] = %s, want %s", i, plan[i].Name, name)
		}
	}
}

func TestBuildPlanSkipsGatedStages(t *testing.T) {
	job := &entities.Job{}
	plan := BuildPlan(job, Features{})

	for _, st := range plan {
		switch st.Name {
		case constant.StageVocalSeparation, constant.StageDiarization, constant.StagePostProcessing:
			t.Fatalf("gated stage %s present in plan", st.Name)
		}
	}
}

func TestWindowScaleClampsAndMaps(t *testing.T) {
	w := Window{Start: 40, End: 70}

	if got := w.Scale(0); got != 40 {
		t.Fatalf("Scale(0) = %d", got)
	}
	if got := w.Scale(100); got != 70 {
		t.Fatalf("Scale(100) = %d", got)
	}
	if got := w.Scale(50); got != 55 {
		t.Fatalf("Scale(50) = %d", got)
	}
	if got := w.Scale(-5); got != 40 {
		t.Fatalf("Scale(-5) = %d", got)
	}
	if got := w.Scale(150); got != 70 {
		t.Fatalf("Scale(150) = %d", got)
	}
}

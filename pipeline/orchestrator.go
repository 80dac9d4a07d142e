package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/dto"
	"worker-transcribe/entities"
	"worker-transcribe/notify"
	"worker-transcribe/repository"
	"worker-transcribe/storage"
)

var ErrNonRetryable = errors.New("non-retryable error")

// Orchestrator drives one job attempt through its stage plan. It owns the
// terminal-state transition, the retry classification and the workspace
// lifecycle; it is the only writer of a job's rows while the attempt runs.
type Orchestrator struct {
	repo     repository.JobRepository
	store    storage.Storage
	notifier notify.Notifier
	factory  Factory
	tracker  ProgressTracker
	features Features
	cfg      config.Pipeline
}

func NewOrchestrator(
	repo repository.JobRepository,
	store storage.Storage,
	notifier notify.Notifier,
	factory Factory,
	tracker ProgressTracker,
	cfg config.Pipeline,
) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		store:    store,
		notifier: notifier,
		factory:  factory,
		tracker:  tracker,
		features: Features{VocalSeparation: cfg.EnableVocalSeparation},
		cfg:      cfg,
	}
}

// runState carries the artifacts and derived values between stages of one
// attempt. Everything in here dies with the attempt's workspace.
type runState struct {
	tempDir            string
	originalPath       string
	extractedAudio     string
	cleanAudio         string
	transcriptionAudio string
	transcriptArtifact string
	speakerSpans       []SpeakerSpan
	transcript         *Transcript
	finalText          string
	chapters           []ChapterNote
	duration           float64
}

// Run executes one attempt of the full pipeline for the given message.
// A nil return means the job reached a terminal state (or was not ours to
// run); a non-nil return asks the consumer to retry the whole attempt.
func (o *Orchestrator) Run(ctx context.Context, message dto.JobMessage) (err error) {
	log := zerolog.Ctx(ctx)
	log.Info().Str("job_id", message.JobId.String()).Msg("processing job")

	job, err := o.repo.FindJobById(ctx, message.JobId)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			log.Error().Str("job_id", message.JobId.String()).Msg("job not found, dropping message")
			return nil
		}
		return err
	}

	if job.Status != constant.JobStatusPending {
		log.Info().Str("job_id", job.ID.String()).Str("status", job.Status.String()).Msg("job is not pending")
		return nil
	}

	startedAt := time.Now().UTC()
	claimed, err := o.repo.ClaimJob(ctx, job.ID, startedAt)
	if err != nil {
		return err
	}
	if !claimed {
		log.Info().Str("job_id", job.ID.String()).Msg("job claimed by another worker")
		return nil
	}

	defer func() {
		if err == nil {
			return
		}
		cleanupCtx := context.WithoutCancel(ctx)
		cause := shortCause(err)
		if errors.Is(err, ErrNonRetryable) || job.Attempts >= int(o.cfg.MaxRetries) {
			now := time.Now().UTC()
			if updateErr := o.repo.MarkFailed(cleanupCtx, job.ID, cause, now); updateErr != nil {
				log.Error().Err(updateErr).Msg("failed to update job status")
			}
			o.dispatch(cleanupCtx, job, constant.EventTranscriptionFailed, cause, nil)
			log.Error().Str("job_id", job.ID.String()).Str("cause", cause).Msg("job failed")
			err = nil
		} else {
			if updateErr := o.repo.MarkPending(cleanupCtx, job.ID); updateErr != nil {
				log.Error().Err(updateErr).Msg("failed to requeue job")
			}
			log.Warn().Str("job_id", job.ID.String()).Str("cause", cause).
				Int("attempt", job.Attempts+1).Msg("attempt failed, scheduling retry")
		}
	}()

	if o.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		defer cancel()
	}

	state := &runState{
		tempDir: filepath.Join(o.cfg.WorkspaceRoot, job.ID.String()),
	}
	defer func() {
		if removeErr := os.RemoveAll(state.tempDir); removeErr != nil {
			log.Warn().Err(removeErr).Str("job_id", job.ID.String()).Msg("failed to remove workspace")
		}
	}()

	if err = os.MkdirAll(state.tempDir, os.ModePerm); err != nil {
		return errors.Join(ErrNonRetryable, err)
	}

	state.originalPath = filepath.Join(state.tempDir, "original"+filepath.Ext(message.FileName))
	log.Info().Str("job_id", job.ID.String()).Str("object", message.ObjectPath).Msg("downloading original")
	if err = o.store.Fetch(ctx, message.ObjectPath, state.originalPath); err != nil {
		return fmt.Errorf("fetch original: %w", err)
	}

	plan := BuildPlan(job, o.features)
	windows := Windows(plan)

	for i, st := range plan {
		win := windows[i]
		o.tracker.Set(ctx, job.ID, win.Start, st.Name)
		log.Info().Str("job_id", job.ID.String()).Str("stage", st.Name.String()).Msg("stage started")

		if st.Name == constant.StageFinalization {
			if err = o.finalize(ctx, job, startedAt, state); err != nil {
				return err
			}
			continue
		}

		if err = o.runStage(ctx, job, st, win, state); err != nil {
			return err
		}
	}

	log.Info().Str("job_id", job.ID.String()).Msg("job completed")
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, job *entities.Job, st Stage, win Window, state *runState) error {
	log := zerolog.Ctx(ctx)

	proc, err := o.factory.New(st.Name, job)
	if err != nil {
		if st.Optional {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Str("stage", st.Name.String()).
				Msg("optional stage unavailable, skipping")
			return nil
		}
		return errors.Join(ErrNonRetryable, err)
	}

	in, out := o.stageIO(st.Name, state)
	res, err := proc.Run(ctx, in, out, func(percent int) {
		o.tracker.Set(ctx, job.ID, win.Scale(percent), st.Name)
	})
	if err != nil {
		if st.Optional {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Str("stage", st.Name.String()).
				Msg("optional stage failed, continuing with prior artifact")
			if removeErr := os.Remove(out); removeErr != nil && !os.IsNotExist(removeErr) {
				log.Warn().Err(removeErr).Msg("failed to discard partial output")
			}
			return nil
		}
		return classify(err)
	}

	o.applyResult(ctx, job, st.Name, out, res, state)
	return nil
}

// stageIO binds a stage to its input and output artifacts. The first stage
// consumes the fetched original; every later stage consumes what the prior
// stages left in the run state.
func (o *Orchestrator) stageIO(stage constant.StageName, state *runState) (string, string) {
	switch stage {
	case constant.StageAudioExtraction:
		return state.originalPath, filepath.Join(state.tempDir, "audio.wav")
	case constant.StageNoiseReduction:
		return state.extractedAudio, filepath.Join(state.tempDir, "audio_clean.wav")
	case constant.StageVocalSeparation:
		return state.cleanAudio, filepath.Join(state.tempDir, "vocals.wav")
	case constant.StageDiarization:
		return state.cleanAudio, filepath.Join(state.tempDir, "diarization.json")
	case constant.StageTranscription:
		return state.transcriptionAudio, filepath.Join(state.tempDir, "transcript_raw.json")
	case constant.StagePunctuation:
		return state.transcriptArtifact, filepath.Join(state.tempDir, "transcript_punctuated.json")
	case constant.StagePostProcessing:
		return state.transcriptArtifact, filepath.Join(state.tempDir, "transcript_final.json")
	}
	return "", ""
}

// applyResult persists stage-specific derived fields as soon as they are
// known and advances the run state. Persistence failures here are logged,
// not fatal: the finalize stage writes the authoritative result.
func (o *Orchestrator) applyResult(ctx context.Context, job *entities.Job, stage constant.StageName, out string, res *StageResult, state *runState) {
	log := zerolog.Ctx(ctx)

	switch stage {
	case constant.StageAudioExtraction:
		state.extractedAudio = out
		state.duration = res.Duration
		if err := o.repo.SetDuration(ctx, job.ID, res.Duration); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to persist duration")
		}
	case constant.StageNoiseReduction:
		state.cleanAudio = out
		state.transcriptionAudio = out
	case constant.StageVocalSeparation:
		state.transcriptionAudio = out
	case constant.StageDiarization:
		state.speakerSpans = res.SpeakerSpans
		if err := o.repo.SetSpeakerCount(ctx, job.ID, res.SpeakerCount); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to persist speaker count")
		}
	case constant.StageTranscription:
		state.transcript = res.Transcript
		state.transcriptArtifact = out
		state.finalText = res.Transcript.Text
		attachSpeakers(state.transcript, state.speakerSpans)
		if err := o.repo.SetTranscriptionMeta(ctx, job.ID, res.Transcript.Language, res.Transcript.AvgConfidence); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to persist transcription meta")
		}
	case constant.StagePunctuation:
		state.transcriptArtifact = out
		state.finalText = res.Text
	case constant.StagePostProcessing:
		state.transcriptArtifact = out
		state.finalText = res.Text
		state.chapters = res.Chapters
		if res.Summary != "" {
			if err := o.repo.SetSummary(ctx, job.ID, res.Summary); err != nil {
				log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to persist summary")
			}
		}
	}
}

// attachSpeakers labels each transcript segment with the speaker whose span
// contains the segment's midpoint.
func attachSpeakers(transcript *Transcript, spans []SpeakerSpan) {
	if transcript == nil || len(spans) == 0 {
		return
	}
	for i := range transcript.Segments {
		seg := &transcript.Segments[i]
		middle := (seg.Start + seg.End) / 2
		for _, span := range spans {
			if span.Start <= middle && middle <= span.End {
				seg.Speaker = span.Speaker
				break
			}
		}
	}
}

func (o *Orchestrator) finalize(ctx context.Context, job *entities.Job, startedAt time.Time, state *runState) error {
	if state.transcript == nil {
		return errors.Join(ErrNonRetryable, errors.New("finalize: no transcript produced"))
	}

	segments := make([]*entities.Segment, 0, len(state.transcript.Segments))
	for idx, seg := range state.transcript.Segments {
		row := &entities.Segment{
			ID:           uuid.New(),
			JobID:        job.ID,
			SegmentIndex: idx,
			StartTime:    seg.Start,
			EndTime:      seg.End,
			Text:         seg.Text,
			Confidence:   seg.Confidence,
			Words:        seg.Words,
		}
		if seg.Speaker != "" {
			speaker := seg.Speaker
			row.SpeakerLabel = &speaker
		}
		segments = append(segments, row)
	}
	if err := o.repo.ReplaceSegments(ctx, job.ID, segments); err != nil {
		return fmt.Errorf("persist segments: %w", err)
	}

	if len(state.chapters) > 0 {
		chapters := make([]*entities.Chapter, 0, len(state.chapters))
		for idx, ch := range state.chapters {
			end := ch.End
			if end == 0 {
				end = state.duration
			}
			row := &entities.Chapter{
				ID:           uuid.New(),
				JobID:        job.ID,
				ChapterIndex: idx,
				Title:        ch.Title,
				StartTime:    ch.Start,
				EndTime:      end,
			}
			if ch.Summary != "" {
				summary := ch.Summary
				row.Summary = &summary
			}
			chapters = append(chapters, row)
		}
		if err := o.repo.CreateChapters(ctx, job.ID, chapters); err != nil {
			return fmt.Errorf("persist chapters: %w", err)
		}
	}

	// The transcript artifact outlives the workspace. Upload is best-effort;
	// segments and chapters hold the same data durably.
	if state.transcriptArtifact != "" {
		object := storage.TranscriptObject(job.ID)
		if err := o.store.Store(ctx, state.transcriptArtifact, object); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", job.ID.String()).
				Str("object", object).Msg("failed to upload transcript artifact")
		}
	}

	completedAt := time.Now().UTC()
	wordCount := len(strings.Fields(state.finalText))
	processingTime := completedAt.Sub(startedAt).Seconds()
	if err := o.repo.CompleteJob(ctx, job.ID, state.finalText, wordCount, processingTime, completedAt); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	o.dispatch(ctx, job, constant.EventTranscriptionCompleted, "", map[string]any{
		"word_count":      wordCount,
		"duration":        state.duration,
		"language":        state.transcript.Language,
		"processing_time": processingTime,
	})
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, job *entities.Job, event constant.EventType, errMsg string, data map[string]any) {
	if job.CallbackTarget == "" {
		return
	}
	status := constant.JobStatusCompleted
	if event == constant.EventTranscriptionFailed {
		status = constant.JobStatusFailed
	}
	payload := dto.WebhookPayload{
		Event:     string(event),
		JobId:     job.ID,
		Status:    status.String(),
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
		Data:      data,
	}
	// Delivery failures are logged by the notifier and never touch job state.
	_ = o.notifier.Notify(ctx, job.CallbackTarget, event, payload)
}

// classify maps a stage failure onto the retry policy: only errors a
// Processor explicitly marked permanent stop the whole-run retry early.
func classify(err error) error {
	var perr *ProcessingError
	if errors.As(err, &perr) && !perr.Transient {
		return errors.Join(ErrNonRetryable, err)
	}
	return err
}

// shortCause extracts a human-readable cause string for the job record,
// never a raw internal trace.
func shortCause(err error) string {
	var perr *ProcessingError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	msg := err.Error()
	if cut, ok := strings.CutPrefix(msg, ErrNonRetryable.Error()+"\n"); ok {
		msg = cut
	}
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

package server

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/dto"
	"worker-transcribe/entities"
	"worker-transcribe/notify"
	"worker-transcribe/repository"
	"worker-transcribe/storage"
)

type routeRepo struct {
	jobs     map[uuid.UUID]*entities.Job
	segments map[uuid.UUID][]*entities.Segment
}

func newRouteRepo(jobs ...*entities.Job) *routeRepo {
	r := &routeRepo{
		jobs:     map[uuid.UUID]*entities.Job{},
		segments: map[uuid.UUID][]*entities.Segment{},
	}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *routeRepo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return callback(ctx)
}

func (r *routeRepo) GetDB() *gorm.DB { return nil }

func (r *routeRepo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return job, nil
}

func (r *routeRepo) ClaimJob(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error) {
	return false, nil
}

func (r *routeRepo) MarkPending(ctx context.Context, id uuid.UUID) error { return nil }

func (r *routeRepo) RequeueFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	job, ok := r.jobs[id]
	if !ok || job.Status != constant.JobStatusFailed {
		return false, nil
	}
	job.Status = constant.JobStatusPending
	job.Attempts = 0
	return true, nil
}

func (r *routeRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause string, completedAt time.Time) error {
	return nil
}

func (r *routeRepo) CompleteJob(ctx context.Context, id uuid.UUID, text string, wordCount int, processingTime float64, completedAt time.Time) error {
	return nil
}

func (r *routeRepo) SetProgress(ctx context.Context, id uuid.UUID, percent int, stage constant.StageName) error {
	return nil
}

func (r *routeRepo) SetDuration(ctx context.Context, id uuid.UUID, seconds float64) error {
	return nil
}

func (r *routeRepo) SetSpeakerCount(ctx context.Context, id uuid.UUID, count int) error { return nil }

func (r *routeRepo) SetTranscriptionMeta(ctx context.Context, id uuid.UUID, language string, avgConfidence float64) error {
	return nil
}

func (r *routeRepo) SetSummary(ctx context.Context, id uuid.UUID, summary string) error { return nil }

func (r *routeRepo) ReplaceSegments(ctx context.Context, id uuid.UUID, segments []*entities.Segment) error {
	return nil
}

func (r *routeRepo) CreateChapters(ctx context.Context, id uuid.UUID, chapters []*entities.Chapter) error {
	return nil
}

func (r *routeRepo) SegmentsByJobId(ctx context.Context, id uuid.UUID) ([]*entities.Segment, error) {
	return r.segments[id], nil
}

func (r *routeRepo) ChaptersByJobId(ctx context.Context, id uuid.UUID) ([]*entities.Chapter, error) {
	return nil, nil
}

func (r *routeRepo) DeleteJob(ctx context.Context, id uuid.UUID) error {
	job, ok := r.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status == constant.JobStatusProcessing {
		return repository.ErrJobProcessing
	}
	delete(r.jobs, id)
	delete(r.segments, id)
	return nil
}

type routeStorage struct {
	deleted []string
}

func (s *routeStorage) Fetch(ctx context.Context, objectName, localPath string) error { return nil }
func (s *routeStorage) Store(ctx context.Context, localPath, objectName string) error { return nil }

func (s *routeStorage) Delete(ctx context.Context, objectName string) error {
	s.deleted = append(s.deleted, objectName)
	return nil
}

type routePublisher struct {
	partitions []constant.Partition
	messages   []dto.JobMessage
}

func (p *routePublisher) Submit(ctx context.Context, partition constant.Partition, message dto.JobMessage) error {
	p.partitions = append(p.partitions, partition)
	p.messages = append(p.messages, message)
	return nil
}

func newRouter(repo repository.JobRepository, store storage.Storage, publisher *routePublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	addJobRoutes(r, repo, store, publisher, constant.PartitionGeneral)
	return r
}

func perform(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestDeleteJobRemovesStoredObjects(t *testing.T) {
	job := &entities.Job{
		ID:          uuid.New(),
		StoragePath: "uploads/meeting.mp4",
		Status:      constant.JobStatusCompleted,
	}
	repo := newRouteRepo(job)
	store := &routeStorage{}
	r := newRouter(repo, store, &routePublisher{})

	w := perform(r, http.MethodDelete, "/jobs/"+job.ID.String())
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := repo.jobs[job.ID]; ok {
		t.Fatal("job row not deleted")
	}
	if len(store.deleted) != 2 {
		t.Fatalf("deleted objects = %v", store.deleted)
	}
	if store.deleted[0] != "uploads/meeting.mp4" {
		t.Fatalf("original not deleted, got %q", store.deleted[0])
	}
	if store.deleted[1] != storage.TranscriptObject(job.ID) {
		t.Fatalf("transcript artifact not deleted, got %q", store.deleted[1])
	}
}

func TestDeleteJobWhileProcessingKeepsObjects(t *testing.T) {
	job := &entities.Job{
		ID:          uuid.New(),
		StoragePath: "uploads/meeting.mp4",
		Status:      constant.JobStatusProcessing,
	}
	repo := newRouteRepo(job)
	store := &routeStorage{}
	r := newRouter(repo, store, &routePublisher{})

	w := perform(r, http.MethodDelete, "/jobs/"+job.ID.String())
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("objects deleted for refused delete: %v", store.deleted)
	}
}

func TestDeleteJobNotFound(t *testing.T) {
	store := &routeStorage{}
	r := newRouter(newRouteRepo(), store, &routePublisher{})

	w := perform(r, http.MethodDelete, "/jobs/"+uuid.NewString())
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("objects deleted for unknown job: %v", store.deleted)
	}
}

func TestRequeueFailedJobPublishes(t *testing.T) {
	job := &entities.Job{
		ID:               uuid.New(),
		OriginalFilename: "meeting.mp4",
		StoragePath:      "uploads/meeting.mp4",
		Status:           constant.JobStatusFailed,
	}
	repo := newRouteRepo(job)
	publisher := &routePublisher{}
	r := newRouter(repo, &routeStorage{}, publisher)

	w := perform(r, http.MethodPost, "/jobs/"+job.ID.String()+"/requeue")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if len(publisher.messages) != 1 || publisher.messages[0].JobId != job.ID {
		t.Fatalf("published messages = %+v", publisher.messages)
	}
	if publisher.partitions[0] != constant.PartitionGeneral {
		t.Fatalf("partition = %s", publisher.partitions[0])
	}
	if job.Status != constant.JobStatusPending {
		t.Fatalf("status after requeue = %s", job.Status)
	}
}

func TestRequeueRejectsNonFailedJob(t *testing.T) {
	job := &entities.Job{ID: uuid.New(), Status: constant.JobStatusCompleted}
	publisher := &routePublisher{}
	r := newRouter(newRouteRepo(job), &routeStorage{}, publisher)

	w := perform(r, http.MethodPost, "/jobs/"+job.ID.String()+"/requeue")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if len(publisher.messages) != 0 {
		t.Fatalf("published messages = %+v", publisher.messages)
	}
}

func TestExportSRTRoute(t *testing.T) {
	job := &entities.Job{ID: uuid.New(), Status: constant.JobStatusCompleted}
	repo := newRouteRepo(job)
	repo.segments[job.ID] = []*entities.Segment{
		{SegmentIndex: 0, StartTime: 0.0, EndTime: 1.5, Text: "oi"},
		{SegmentIndex: 1, StartTime: 1.5, EndTime: 3.2, Text: "tudo bem"},
	}
	r := newRouter(repo, &routeStorage{}, &routePublisher{})

	w := perform(r, http.MethodGet, "/jobs/"+job.ID.String()+"/export/srt")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "00:00:00,000 --> 00:00:01,500") {
		t.Fatalf("srt body:\n%s", w.Body.String())
	}

	w = perform(r, http.MethodGet, "/jobs/"+job.ID.String()+"/export/pdf")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d", w.Code)
	}
}

func TestExportRejectsIncompleteJob(t *testing.T) {
	job := &entities.Job{ID: uuid.New(), Status: constant.JobStatusProcessing}
	r := newRouter(newRouteRepo(job), &routeStorage{}, &routePublisher{})

	w := perform(r, http.MethodGet, "/jobs/"+job.ID.String()+"/export/txt")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestNewNotifierRespectsRetrySetting(t *testing.T) {
	cfg := &config.Config{Webhook: config.Webhook{Timeout: time.Second, MaxRetries: 3}}
	if _, ok := newNotifier(cfg).(*notify.WebhookNotifier); !ok {
		t.Fatal("expected webhook notifier when retries are configured")
	}

	cfg.Webhook.MaxRetries = 0
	if _, ok := newNotifier(cfg).(notify.NopNotifier); !ok {
		t.Fatal("expected nop notifier when delivery is disabled")
	}
}

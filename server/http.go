package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/dto"
	"worker-transcribe/export"
	jobHandler "worker-transcribe/handler"
	"worker-transcribe/notify"
	"worker-transcribe/pipeline"
	"worker-transcribe/pipeline/processors"
	"worker-transcribe/pkg/rabbitmq"
	"worker-transcribe/repository"
	"worker-transcribe/storage"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRabbitMQConn")
	}

	store, err := newStorage(cfg)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to initialize storage backend")
	}

	factory, err := processors.NewFactory(cfg.Pipeline, cfg.OpenAI)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to initialize stage factory")
	}

	repo := repository.NewRepo(cfg.DB)
	notifier := newNotifier(cfg)
	orchestrator := pipeline.NewOrchestrator(repo, store, notifier, factory, pipeline.NewTracker(repo), cfg.Pipeline)

	serviceDeps := jobHandler.ServiceDependencies{
		Orchestrator: orchestrator,
	}

	partition := rabbitmq.Route(cfg.Pipeline.ComputeTarget)
	zerolog.Ctx(ctx).Info().
		Str("compute_target", cfg.Pipeline.ComputeTarget).
		Str("partition", string(partition)).
		Msg("worker partition resolved")

	consumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.ForPartition(partition),
		cfg.Server.Workers, cfg.Pipeline.MaxRetries+1, jobHandler.JobHandler)
	go func() {
		if err := consumer.Consume(ctx, serviceDeps); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("transcription consumer error")
		}
	}()

	publisher := rabbitmq.NewPublisher(conn, cfg.Queue)

	r := gin.Default()
	addHealth(r)
	addJobRoutes(r, repo, store, publisher, partition)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageKind == "local" {
		return storage.NewLocalStorage(cfg.LocalRoot)
	}
	return storage.NewMinioStorage(cfg.Storage, cfg.MinIOBucket), nil
}

// newNotifier picks the outbound delivery mechanism. Setting
// webhook.max_retries to zero turns delivery off entirely.
func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Webhook.MaxRetries == 0 {
		return notify.NopNotifier{}
	}
	return notify.NewWebhookNotifier(cfg.Webhook)
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func addJobRoutes(r *gin.Engine, repo repository.JobRepository, store storage.Storage, publisher rabbitmq.Publisher, partition constant.Partition) {
	r.GET("/jobs/:id", func(c *gin.Context) {
		id, ok := jobId(c)
		if !ok {
			return
		}
		job, err := repo.FindJobById(c.Request.Context(), id)
		if err != nil {
			jobError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
	})

	r.GET("/jobs/:id/segments", func(c *gin.Context) {
		id, ok := jobId(c)
		if !ok {
			return
		}
		if _, err := repo.FindJobById(c.Request.Context(), id); err != nil {
			jobError(c, err)
			return
		}
		segments, err := repo.SegmentsByJobId(c.Request.Context(), id)
		if err != nil {
			jobError(c, err)
			return
		}
		c.JSON(http.StatusOK, segments)
	})

	r.GET("/jobs/:id/export/:format", func(c *gin.Context) {
		id, ok := jobId(c)
		if !ok {
			return
		}
		format, err := export.ParseFormat(c.Param("format"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		job, err := repo.FindJobById(c.Request.Context(), id)
		if err != nil {
			jobError(c, err)
			return
		}
		if job.Status != constant.JobStatusCompleted {
			c.JSON(http.StatusConflict, gin.H{"error": "job is not completed"})
			return
		}
		segments, err := repo.SegmentsByJobId(c.Request.Context(), id)
		if err != nil {
			jobError(c, err)
			return
		}

		switch format {
		case export.FormatJSON:
			chapters, err := repo.ChaptersByJobId(c.Request.Context(), id)
			if err != nil {
				jobError(c, err)
				return
			}
			c.JSON(http.StatusOK, export.BuildDocument(job, segments, chapters))
		case export.FormatSRT:
			c.Data(http.StatusOK, format.ContentType(), []byte(export.SRT(segments)))
		case export.FormatVTT:
			c.Data(http.StatusOK, format.ContentType(), []byte(export.VTT(segments)))
		default:
			c.Data(http.StatusOK, format.ContentType(), []byte(export.Text(job, segments)))
		}
	})

	r.POST("/jobs/:id/requeue", func(c *gin.Context) {
		id, ok := jobId(c)
		if !ok {
			return
		}
		job, err := repo.FindJobById(c.Request.Context(), id)
		if err != nil {
			jobError(c, err)
			return
		}
		requeued, err := repo.RequeueFailed(c.Request.Context(), id)
		if err != nil {
			jobError(c, err)
			return
		}
		if !requeued {
			c.JSON(http.StatusConflict, gin.H{"error": "only failed jobs can be requeued"})
			return
		}
		message := dto.JobMessage{
			JobId:      job.ID,
			ObjectPath: job.StoragePath,
			FileName:   job.OriginalFilename,
		}
		if err := publisher.Submit(c.Request.Context(), partition, message); err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("job_id", id.String()).Msg("failed to publish requeued job")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish job"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	r.DELETE("/jobs/:id", func(c *gin.Context) {
		id, ok := jobId(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		job, err := repo.FindJobById(ctx, id)
		if err != nil {
			jobError(c, err)
			return
		}
		if err := repo.DeleteJob(ctx, id); err != nil {
			jobError(c, err)
			return
		}
		// Storage cleanup is best-effort; the DB cascade is the
		// authoritative delete.
		for _, object := range []string{job.StoragePath, storage.TranscriptObject(id)} {
			if err := store.Delete(ctx, object); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", id.String()).
					Str("object", object).Msg("failed to delete stored object")
			}
		}
		c.Status(http.StatusNoContent)
	})
}

func jobId(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return uuid.Nil, false
	}
	return id, true
}

func jobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, repository.ErrJobProcessing):
		c.JSON(http.StatusConflict, gin.H{"error": "job is processing"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}

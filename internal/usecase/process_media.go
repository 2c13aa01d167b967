package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"github.com/matCzelusniak/facefusion/internal/domain/port"
	"github.com/matCzelusniak/facefusion/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Validation failures surfaced synchronously to the submitting caller.
var (
	ErrMissingJobID      = errors.New("jobId is required and cannot be empty")
	ErrMissingInputMedia = errors.New("missing required media files")
)

const notifyTimeout = 30 * time.Second

// ProcessMediaUseCase owns the asynchronous job pipeline: it acknowledges a
// validated request synchronously, then drives engine -> upload -> notify in
// a background task. Every failure after acceptance is absorbed into exactly
// one terminal notification; nothing from the background task ever reaches
// the original caller.
type ProcessMediaUseCase struct {
	engine   port.Engine
	uploader port.ArtifactUploader
	notifier port.Notifier
	logger   *zap.Logger
	cfg      ProcessMediaConfig

	wg sync.WaitGroup
}

type ProcessMediaConfig struct {
	// Defaults are merged under every request's options. Cloned per job,
	// never mutated in place.
	Defaults entity.Options
	// EngineTimeout bounds a single engine run; zero disables the bound.
	EngineTimeout time.Duration
	// KeepWorkDir retains per-job work directories after the terminal
	// notification, for debugging.
	KeepWorkDir bool
}

// SubmitRequest is a validated-enough inbound job: the HTTP collaborator has
// already persisted both media streams to job-scoped local paths.
type SubmitRequest struct {
	JobID      string
	SourcePath string
	TargetPath string
	WorkDir    string
	Options    entity.Options
}

func NewProcessMediaUseCase(
	engine port.Engine,
	uploader port.ArtifactUploader,
	notifier port.Notifier,
	logger *zap.Logger,
	cfg ProcessMediaConfig,
) *ProcessMediaUseCase {
	if cfg.Defaults.Len() == 0 {
		cfg.Defaults = entity.DefaultOptions()
	}
	return &ProcessMediaUseCase{
		engine:   engine,
		uploader: uploader,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

var jobIDSanitizer = strings.NewReplacer("'", "", "\"", "", "`", "")

// Submit validates the request, schedules the background pipeline and
// returns the accepted job id. It returns before the engine is invoked, so
// caller-facing latency is bounded by validation, not processing time.
func (uc *ProcessMediaUseCase) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	jobID := strings.TrimSpace(jobIDSanitizer.Replace(req.JobID))
	if jobID == "" {
		return "", ErrMissingJobID
	}
	if req.SourcePath == "" || req.TargetPath == "" {
		return "", ErrMissingInputMedia
	}

	opts := uc.cfg.Defaults.Merge(req.Options)

	ext := ".webp"
	if opts.MediaTypeOutput() == entity.MediaKindVideo {
		ext = ".mp4"
	}

	job := &entity.Job{
		ID:         jobID,
		SourcePath: req.SourcePath,
		TargetPath: req.TargetPath,
		OutputPath: filepath.Join(req.WorkDir, fmt.Sprintf("output_%d%s", time.Now().UnixMilli(), ext)),
		WorkDir:    req.WorkDir,
		Options:    opts,
		CreatedAt:  time.Now().UTC(),
	}

	uc.wg.Add(1)
	go uc.runJob(context.WithoutCancel(ctx), job)

	return jobID, nil
}

// Wait blocks until all in-flight jobs have delivered their notification.
func (uc *ProcessMediaUseCase) Wait() {
	uc.wg.Wait()
}

func (uc *ProcessMediaUseCase) runJob(ctx context.Context, job *entity.Job) {
	defer uc.wg.Done()

	log := uc.logger.With(zap.String("job_id", job.ID))

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	if !uc.cfg.KeepWorkDir && job.WorkDir != "" {
		defer os.RemoveAll(job.WorkDir)
	}

	start := time.Now()
	n := uc.executeStages(ctx, job, log)

	status := "completed"
	if !n.Success {
		status = "failed"
	}
	metrics.JobsProcessedTotal.WithLabelValues(status).Inc()
	metrics.JobStageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())

	uc.deliver(ctx, n, log)
}

// executeStages runs the pipeline and converts every failure mode into the
// terminal notification. A panic in any stage still yields exactly one
// failure notification.
func (uc *ProcessMediaUseCase) executeStages(ctx context.Context, job *entity.Job, log *zap.Logger) (n entity.Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("job pipeline panicked", zap.Any("panic", r))
			n = entity.NewFailureNotification(job.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessMediaUseCase.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.output_path", job.OutputPath),
	)

	// The background task can outlive the submitting request, so re-check
	// the inputs it depends on.
	if job.SourcePath == "" || job.TargetPath == "" {
		return entity.NewFailureNotification(job.ID, ErrMissingInputMedia.Error())
	}

	engStart := time.Now()
	engCtx := ctx
	cancel := context.CancelFunc(func() {})
	if uc.cfg.EngineTimeout > 0 {
		engCtx, cancel = context.WithTimeout(ctx, uc.cfg.EngineTimeout)
	}
	engCtx, engSpan := tracer.Start(engCtx, "engine")
	outcome, err := uc.engine.Run(engCtx, job.SourcePath, job.TargetPath, job.OutputPath, job.Options)
	engSpan.End()
	cancel()
	metrics.JobStageDuration.WithLabelValues("engine").Observe(time.Since(engStart).Seconds())

	if err != nil {
		log.Error("engine invocation failed", zap.Error(err))
		return entity.NewFailureNotification(job.ID, err.Error())
	}
	if !outcome.Succeeded() {
		log.Error("engine exited with failure",
			zap.Int("exit_code", outcome.ExitCode),
			zap.String("diagnostics", outcome.Diagnostics),
		)
		msg := outcome.Diagnostics
		if strings.TrimSpace(msg) == "" {
			msg = "Process failed"
		}
		return entity.NewFailureNotification(job.ID, msg)
	}

	kind := entity.MediaKindForPath(job.OutputPath)

	upStart := time.Now()
	upCtx, upSpan := tracer.Start(ctx, "upload")
	var result *entity.UploadResult
	if kind == entity.MediaKindVideo {
		result, err = uc.uploader.UploadVideo(upCtx, job.OutputPath, job.ID, filepath.Ext(job.OutputPath))
	} else {
		result, err = uc.uploader.UploadImage(upCtx, job.OutputPath, job.ID)
	}
	upSpan.End()
	metrics.JobStageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(kind), "error").Inc()
		log.Error("artifact upload failed", zap.String("kind", string(kind)), zap.Error(err))
		return entity.NewFailureNotification(job.ID, err.Error())
	}
	metrics.UploadsTotal.WithLabelValues(string(kind), "ok").Inc()

	log.Info("job completed",
		zap.String("media_type", string(kind)),
		zap.String("cloudflare_id", result.ID),
		zap.String("cloudflare_url", result.URL),
	)

	return entity.NewSuccessNotification(job.ID, kind, result)
}

// deliver makes the single notification attempt. Failure to notify is
// logged, never escalated; the job is terminally handled either way.
func (uc *ProcessMediaUseCase) deliver(ctx context.Context, n entity.Notification, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := uc.notifier.Notify(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		log.Error("failed to deliver notification", zap.Error(err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
}

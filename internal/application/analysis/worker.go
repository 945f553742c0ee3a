package analysis

import (
	"context"
	"time"

	"github.com/turtacn/molnotation/internal/infrastructure/database/redis"
	"github.com/turtacn/molnotation/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/pkg/errors"
	"github.com/turtacn/molnotation/pkg/types/common"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// Job outcomes reported to the JobRecorder.
const (
	JobSucceeded = "succeeded"
	JobRejected  = "rejected"
	JobDuplicate = "duplicate"
	JobFailed    = "failed"
)

// JobRecorder counts processed jobs by outcome.
type JobRecorder interface {
	RecordJob(status string)
}

// JobHandlerConfig configures NewJobHandler.
type JobHandlerConfig struct {
	Service Service
	// Results receives one AnalysisCompleted per finished job.
	Results JobPublisher
	// Claims is optional; without it redelivered jobs are processed again.
	Claims   redis.JobClaimer
	ClaimTTL time.Duration
	Timeout  time.Duration
	Recorder JobRecorder
	Logger   logging.Logger
	Now      func() time.Time
}

// JobHandler turns AnalysisJob messages into AnalysisCompleted messages.
type JobHandler struct {
	cfg    JobHandlerConfig
	logger logging.Logger
}

func NewJobHandler(cfg JobHandlerConfig) *JobHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 5 * time.Minute
	}
	return &JobHandler{cfg: cfg, logger: cfg.Logger.Named("jobs")}
}

// Handle is a kafka.MessageHandler. Malformed messages are permanent
// failures. A job whose notation is rejected still completes, with the error
// in the result. Only infrastructure failures are returned for retry, after
// the claim is released.
func (h *JobHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var job mtypes.AnalysisJob
	if err := msg.DecodeJSON(&job); err != nil {
		h.record(JobFailed)
		return kafka.Permanent(err)
	}
	if job.JobID == "" {
		h.record(JobFailed)
		return kafka.Permanent(errors.New(errors.ErrCodeValidation, "job_id is required"))
	}
	log := h.logger.With(logging.String("job_id", string(job.JobID)))

	var token string
	if h.cfg.Claims != nil {
		tok, ok, err := h.cfg.Claims.Claim(ctx, string(job.JobID), h.cfg.ClaimTTL)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("job already claimed, skipping")
			h.record(JobDuplicate)
			return nil
		}
		token = tok
	}

	runCtx := ctx
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result := mtypes.AnalysisCompleted{JobID: job.JobID}
	analysis, err := h.cfg.Service.Analyze(runCtx, &job.Request)
	status := JobSucceeded
	switch {
	case err == nil:
		result.Analysis = analysis
	case isRequestError(err):
		status = JobRejected
		result.Error = ErrorDetail(err)
	default:
		h.release(ctx, log, string(job.JobID), token)
		h.record(JobFailed)
		log.Error("analysis failed", logging.Err(err), logging.ErrCode(err))
		return err
	}
	result.CompletedAt = common.Timestamp(h.cfg.Now().UTC())

	if err := h.cfg.Results.PublishJSON(ctx, kafka.TopicAnalysisCompleted, string(job.JobID), result); err != nil {
		h.release(ctx, log, string(job.JobID), token)
		h.record(JobFailed)
		return err
	}
	h.record(status)
	log.Info("job completed",
		logging.String("status", status),
		logging.Duration("duration", time.Since(start)))
	return nil
}

func (h *JobHandler) release(ctx context.Context, log logging.Logger, jobID, token string) {
	if h.cfg.Claims == nil || token == "" {
		return
	}
	if err := h.cfg.Claims.Release(ctx, jobID, token); err != nil {
		log.Warn("failed to release job claim", logging.Err(err))
	}
}

func (h *JobHandler) record(status string) {
	if h.cfg.Recorder != nil {
		h.cfg.Recorder.RecordJob(status)
	}
}

// isRequestError reports whether err is caused by the job's content rather
// than by the infrastructure, so that retrying cannot help.
func isRequestError(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotationSyntax, errors.ErrCodeNotationSemantic, errors.ErrCodeNotationEmpty,
		errors.ErrCodeMatchTimeout, errors.ErrCodeBadRequest, errors.ErrCodeValidation:
		return true
	}
	return false
}

// internal/workers/report/send/handler.go
package send

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"vinreport-workers/internal/common/errors"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/observability"
	"vinreport-workers/internal/models"
	"vinreport-workers/internal/report"
	"vinreport-workers/internal/workers/report/jobutil"
)

const (
	TaskType = "vehicle-report-send"
)

type Validator interface {
	Validate(params models.Params) error
}

type ArtifactSource interface {
	GetArtifact(ctx context.Context, params models.Params) (*report.Artifact, error)
}

// Mailer sends a file to the request's email address.
// *email.Dispatcher implements it.
type Mailer interface {
	SendEmail(ctx context.Context, params models.Params, subject, body, attachmentPath string) (bool, error)
}

type Handler struct {
	config       *Config
	rules        Validator
	artifacts    ArtifactSource
	mailer       Mailer
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, rules Validator, artifacts ArtifactSource, mailer Mailer, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if rules == nil || artifacts == nil || mailer == nil {
		return nil, fmt.Errorf("rules, artifact source and mailer are required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       config,
		rules:        rules,
		artifacts:    artifacts,
		mailer:       mailer,
		obs:          obs,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	tracked := jobutil.StartJob(TaskType, h.obs)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	params, err := jobutil.ParseInput(job)
	if err != nil {
		h.failJob(client, job, tracked, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, params)
	if err != nil {
		h.failJob(client, job, tracked, err)
		return
	}

	h.completeJob(client, job, output)
	if output.ErrorCode != 0 {
		tracked.Done(fmt.Sprintf("%d", output.ErrorCode))
		return
	}
	tracked.Done("")
}

// process runs the job and folds business failures into the output.
func (h *Handler) process(ctx context.Context, params models.Params) (*Output, error) {
	output, err := h.execute(ctx, params)
	if err == nil {
		return output, nil
	}
	if env, ok := jobutil.InBand(err); ok {
		h.logger.Warn("request answered with error", map[string]interface{}{
			"errorCode":    env.ErrorCode,
			"errorMessage": env.ErrorMessage,
		})
		return env, nil
	}
	return nil, err
}

func (h *Handler) execute(ctx context.Context, params models.Params) (*Output, error) {
	if err := h.rules.Validate(params); err != nil {
		return nil, err
	}

	artifact, err := h.artifacts.GetArtifact(ctx, params)
	if err != nil {
		return nil, jobutil.Classify(ctx, err, "generate")
	}
	h.obs.RecordArtifactSize(ctx, artifact.Size, artifact.Cached)

	sent, err := h.mailer.SendEmail(ctx, params, h.config.Subject, h.config.Body, artifact.Path)
	if err != nil {
		return nil, classifyDispatch(ctx, err)
	}

	h.logger.Info("report sent", map[string]interface{}{
		"reportName": artifact.Name,
		"cached":     artifact.Cached,
		"result":     sent,
	})
	return &Output{Result: sent}, nil
}

// classifyDispatch keeps remote and transport errors and marks every
// other delivery failure retryable.
func classifyDispatch(ctx context.Context, err error) error {
	classified := jobutil.Classify(ctx, err, "email")
	if _, ok := errors.AsRemote(classified); ok {
		return classified
	}
	if _, ok := errors.AsTransport(classified); ok {
		return classified
	}
	if std := errors.FromError(classified); std.Code == errors.ErrCodeReportTimeout {
		return classified
	}
	return errors.NewEmailSendFailedError(err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, tracked *jobutil.Job, err error) {
	tracked.Done(jobutil.ErrorCode(err))
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, params models.Params) (*Output, error) {
	return h.process(ctx, params)
}

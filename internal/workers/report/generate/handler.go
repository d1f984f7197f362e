// internal/workers/report/generate/handler.go
package generate

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
	TaskType = "vehicle-report-generate"
)

// Validator checks request parameters. *validation.RuleSet implements it.
type Validator interface {
	Validate(params models.Params) error
}

// ArtifactSource returns the cached or freshly generated report.
// *report.Orchestrator implements it.
type ArtifactSource interface {
	GetArtifact(ctx context.Context, params models.Params) (*report.Artifact, error)
}

type Handler struct {
	config       *Config
	rules        Validator
	artifacts    ArtifactSource
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, rules Validator, artifacts ArtifactSource, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if rules == nil || artifacts == nil {
		return nil, fmt.Errorf("rules and artifact source are required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       config,
		rules:        rules,
		artifacts:    artifacts,
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

	output, err := h.execute(ctx, params)
	if err != nil {
		h.failJob(client, job, tracked, err)
		return
	}

	h.completeJob(client, job, output)
	tracked.Done("")
}

func (h *Handler) execute(ctx context.Context, params models.Params) (*Output, error) {
	if err := h.rules.Validate(params); err != nil {
		if ve, ok := errors.AsValidation(err); ok {
			h.logger.Warn("request rejected", map[string]interface{}{
				"field":  ve.Field,
				"reason": ve.Reason,
			})
		}
		return nil, err
	}

	artifact, err := h.artifacts.GetArtifact(ctx, params)
	if err != nil {
		return nil, jobutil.Classify(ctx, err, "generate")
	}
	h.obs.RecordArtifactSize(ctx, artifact.Size, artifact.Cached)

	h.logger.Info("report ready", map[string]interface{}{
		"reportName": artifact.Name,
		"cached":     artifact.Cached,
		"sizeBytes":  artifact.Size,
	})

	return &Output{
		ReportName: artifact.Name,
		ReportPath: artifact.Path,
		Cached:     artifact.Cached,
		SizeBytes:  artifact.Size,
	}, nil
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
	return h.execute(ctx, params)
}

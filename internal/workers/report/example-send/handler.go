// internal/workers/report/example-send/handler.go
package examplesend

import (
	"context"
	"fmt"
	"os"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"vinreport-workers/internal/common/errors"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/observability"
	"vinreport-workers/internal/models"
	"vinreport-workers/internal/workers/report/jobutil"
)

const (
	TaskType = "vehicle-report-example-send"
)

type Validator interface {
	Validate(params models.Params) error
}

type Mailer interface {
	SendEmail(ctx context.Context, params models.Params, subject, body, attachmentPath string) (bool, error)
}

type Handler struct {
	config       *Config
	rules        Validator
	mailer       Mailer
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, rules Validator, mailer Mailer, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if rules == nil || mailer == nil {
		return nil, fmt.Errorf("rules and mailer are required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	if _, err := os.Stat(config.ExampleFile); err != nil {
		log.Warn("example report not readable", map[string]interface{}{
			"path":  config.ExampleFile,
			"error": err.Error(),
		})
	}

	return &Handler{
		config:       config,
		rules:        rules,
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

	if _, err := os.Stat(h.config.ExampleFile); err != nil {
		return nil, errors.NewExampleReportNotFoundError(h.config.ExampleFile)
	}

	sent, err := h.mailer.SendEmail(ctx, params, h.config.Subject, h.config.Body, h.config.ExampleFile)
	if err != nil {
		if _, ok := errors.AsRemote(err); ok {
			return nil, err
		}
		if _, ok := errors.AsTransport(err); ok {
			return nil, err
		}
		return nil, errors.NewEmailSendFailedError(err)
	}

	h.logger.Info("example report sent", map[string]interface{}{"result": sent})
	return &Output{Result: sent}, nil
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

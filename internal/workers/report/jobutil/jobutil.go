// Package jobutil holds what the vehicle report workers share: job input
// parsing, error classification and job metrics.
package jobutil

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"

	"vinreport-workers/internal/aggregator"
	"vinreport-workers/internal/common/errors"
	"vinreport-workers/internal/common/metrics"
	"vinreport-workers/internal/common/observability"
	"vinreport-workers/internal/models"
	"vinreport-workers/internal/report"
)

// Input is the job variable layout every report worker reads.
type Input struct {
	Params *models.Params `json:"params"`
}

// ParseInput decodes the job's params object.
func ParseInput(job entities.Job) (models.Params, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return models.Params{}, errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}
	if input.Params == nil {
		return models.Params{}, errors.NewInvalidInputError("params is required")
	}
	return *input.Params, nil
}

// Envelope is the in-band result of the send workers, the same shape the
// gateway answers with.
type Envelope struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Result       bool   `json:"result"`
}

// InBand turns a business failure into an envelope. Validation and remote
// errors qualify; anything else returns false.
func InBand(err error) (*Envelope, bool) {
	if ve, ok := errors.AsValidation(err); ok {
		return &Envelope{ErrorCode: ve.Code, ErrorMessage: ve.Reason}, true
	}
	if re, ok := errors.AsRemote(err); ok {
		return &Envelope{ErrorCode: re.Code, ErrorMessage: re.Message}, true
	}
	return nil, false
}

// Classify maps a pipeline error onto the job error taxonomy. Domain errors
// pass through; generation failures and timeouts become retryable.
func Classify(ctx context.Context, err error, stage string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsValidation(err); ok {
		return err
	}
	if _, ok := errors.AsRemote(err); ok {
		return err
	}
	if _, ok := errors.AsTransport(err); ok {
		return err
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewReportTimeoutError(stage)
	case stderrors.Is(err, report.ErrRenderFailed),
		stderrors.Is(err, report.ErrStoreFailed),
		stderrors.Is(err, aggregator.ErrMalformedResult):
		return errors.NewReportGenerationFailedError(stage, err)
	}
	return err
}

// Job tracks one job for the prometheus and otel metrics.
type Job struct {
	taskType string
	obs      *observability.Observability
	start    time.Time
}

// StartJob marks a job active. Call Done exactly once.
func StartJob(taskType string, obs *observability.Observability) *Job {
	metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &Job{taskType: taskType, obs: obs, start: time.Now()}
}

// Done records the outcome. An empty errorCode means completed.
func (j *Job) Done(errorCode string) {
	elapsed := time.Since(j.start)
	metrics.WorkerJobsActive.WithLabelValues(j.taskType).Dec()
	metrics.WorkerJobDuration.WithLabelValues(j.taskType).Observe(elapsed.Seconds())

	status := "completed"
	if errorCode != "" {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(j.taskType, errorCode).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(j.taskType).Inc()
	}

	ctx := context.Background()
	j.obs.RecordJobProcessed(ctx, j.taskType, status)
	j.obs.RecordJobDuration(ctx, j.taskType, elapsed, status)
}

// ErrorCode is the metrics label for err.
func ErrorCode(err error) string {
	return string(errors.FromError(err).Code)
}

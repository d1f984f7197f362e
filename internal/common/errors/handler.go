// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler turns pipeline errors into job failures or BPMN errors.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// JobErrorAction is what the handler decided to do with a failed job.
type JobErrorAction struct {
	Throw   bool
	Retries int32
	BPMN    *BPMNError
}

// Decide picks between failing with retries and throwing a BPMN error.
// remaining is the number of retries the engine still allows for the job.
func (h *ErrorHandler) Decide(err error, remaining int32) JobErrorAction {
	stdErr := FromError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	retries := int32(bpmnErr.Retries)
	if retries == 0 || remaining <= 0 {
		return JobErrorAction{Throw: true, BPMN: bpmnErr}
	}
	// Engine retries are the total remaining, never raise them.
	if remaining < retries {
		retries = remaining
	}
	return JobErrorAction{Retries: retries - 1, BPMN: bpmnErr}
}

// HandleJobError handles any error in a worker job
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	action := h.Decide(err, job.Retries)

	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"bpmnErrorCode":    action.BPMN.Code,
		"message":          action.BPMN.Message,
		"details":          action.BPMN.Details,
		"retryable":        action.BPMN.Retryable,
		"retries":          action.Retries,
		"throw":            action.Throw,
		"errorCategory":    GetErrorCategory(ErrorCode(action.BPMN.ErrorVariables["originalErrorCode"].(string))),
		"workflowInstance": job.ProcessInstanceKey,
	})

	if action.Throw {
		h.throwBPMNError(ctx, client, job, action.BPMN)
		return
	}
	h.failJobWithRetries(ctx, client, job, action.BPMN, action.Retries)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message)

	if varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if cmdWithVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			if _, err := cmdWithVars.Send(ctx); err != nil {
				h.logger.Error("failed to send fail job command", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{"error": err.Error()})
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if cmdWithVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			if _, err := cmdWithVars.Send(ctx); err != nil {
				h.logger.Error("failed to throw error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err.Error()})
	}
}

// Package errors provides the error taxonomy shared by the report pipeline
// and its translation into workflow (BPMN) errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Domain Error Types
// ==========================

// TransportError is returned when a gateway answers with a non-200 status.
// The body is kept raw; it is never parsed as an envelope.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway transport error: status %d: %s", e.Status, e.Body)
}

// RemoteError is a failure reported inside a response envelope.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Validation codes returned to callers, kept compatible with existing clients.
const (
	CodeMissingField = 405
	CodeInvalidField = 406
)

// ValidationError describes the first request parameter that failed a rule.
type ValidationError struct {
	Field  string
	Reason string
	Code   int
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewMissingFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "Missing " + field, Code: CodeMissingField}
}

func NewInvalidFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "Invalid " + field, Code: CodeInvalidField}
}

// NewEitherRequiredError is raised when none of an at-least-one group is present.
func NewEitherRequiredError(fields []string) *ValidationError {
	return &ValidationError{
		Field:  strings.Join(fields, ","),
		Reason: strings.Join(fields, " or ") + " must be specified",
		Code:   CodeMissingField,
	}
}

func (e *ValidationError) IsMissing() bool { return e.Code == CodeMissingField }

func (e *ValidationError) IsInvalid() bool { return e.Code == CodeInvalidField }

// AsRemote unwraps err into a *RemoteError.
func AsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	ok := stderrors.As(err, &re)
	return re, ok
}

// AsTransport unwraps err into a *TransportError.
func AsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	ok := stderrors.As(err, &te)
	return te, ok
}

// AsValidation unwraps err into a *ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := stderrors.As(err, &ve)
	return ve, ok
}

// ==========================
// 2. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeRemoteError            ErrorCode = "REMOTE_ERROR"
	ErrCodeTransportError         ErrorCode = "TRANSPORT_ERROR"
	ErrCodeReportGenerationFailed ErrorCode = "REPORT_GENERATION_FAILED"
	ErrCodeEmailSendFailed        ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeReportTimeout          ErrorCode = "REPORT_TIMEOUT"
	ErrCodeInternalError          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"
	ErrCodeExampleReportNotFound  ErrorCode = "EXAMPLE_REPORT_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// FromError normalizes any error from the pipeline into a StandardError.
// Remote and validation failures are business outcomes and never retried;
// transport failures are.
func FromError(err error) *StandardError {
	var std *StandardError
	if stderrors.As(err, &std) {
		return std
	}

	now := time.Now().UTC()
	if ve, ok := AsValidation(err); ok {
		return &StandardError{
			Code:      ErrCodeValidationFailed,
			Message:   ve.Reason,
			Details:   err.Error(),
			Metadata:  map[string]interface{}{"field": ve.Field, "statusCode": ve.Code},
			Timestamp: now,
		}
	}
	if re, ok := AsRemote(err); ok {
		return &StandardError{
			Code:      ErrCodeRemoteError,
			Message:   re.Message,
			Details:   err.Error(),
			Metadata:  map[string]interface{}{"statusCode": re.Code},
			Timestamp: now,
		}
	}
	if te, ok := AsTransport(err); ok {
		return &StandardError{
			Code:      ErrCodeTransportError,
			Message:   fmt.Sprintf("gateway returned status %d", te.Status),
			Details:   err.Error(),
			Retryable: true,
			Metadata:  map[string]interface{}{"statusCode": te.Status},
			Timestamp: now,
		}
	}
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: now,
	}
}

// NewReportGenerationFailedError creates a retryable generation error.
func NewReportGenerationFailedError(reportName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportGenerationFailed,
		Message:   "Report generation failed",
		Details:   fmt.Sprintf("report: %s, error: %s", reportName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError creates a retryable delivery error.
func NewEmailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Email delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable job input error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job variables",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewExampleReportNotFoundError is raised when the static example file is gone.
func NewExampleReportNotFoundError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExampleReportNotFound,
		Message:   "Example report is missing",
		Details:   fmt.Sprintf("path: %s", path),
		Timestamp: time.Now().UTC(),
	}
}

// NewReportTimeoutError creates a retryable timeout error.
func NewReportTimeoutError(stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportTimeout,
		Message:   "Report pipeline timed out",
		Details:   fmt.Sprintf("stage: %s", stage),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// BPMNErrorMapping maps internal codes to the codes modelled in the process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:       "REPORT_VALIDATION_ERROR",
	ErrCodeRemoteError:            "REPORT_REMOTE_ERROR",
	ErrCodeTransportError:         "REPORT_GATEWAY_UNAVAILABLE",
	ErrCodeReportGenerationFailed: "REPORT_GENERATION_ERROR",
	ErrCodeEmailSendFailed:        "REPORT_EMAIL_ERROR",
	ErrCodeReportTimeout:          "REPORT_TIMEOUT",
	ErrCodeInvalidInput:           "REPORT_INVALID_INPUT",
	ErrCodeExampleReportNotFound:  "REPORT_EXAMPLE_MISSING",
}

// GetRetryCount returns how many job retries a code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTransportError,
		ErrCodeReportGenerationFailed,
		ErrCodeEmailSendFailed:
		return 3

	case ErrCodeReportTimeout:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 4. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "REMOTE") || strings.Contains(codeStr, "TRANSPORT"):
		return "GATEWAY"
	case strings.Contains(codeStr, "REPORT"):
		return "REPORT"
	case strings.Contains(codeStr, "EMAIL"):
		return "EMAIL"
	default:
		return "OTHER"
	}
}

// Package errors provides the standardized error type shared by the tools and the sidecar,
// and its conversion to BPMN errors for the workflow worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeChecksumReadFailed      ErrorCode = "CHECKSUM_READ_FAILED"
	ErrCodeChecksumInvalidEncoding ErrorCode = "CHECKSUM_INVALID_ENCODING"

	ErrCodeMigrationScanFailed         ErrorCode = "MIGRATION_SCAN_FAILED"
	ErrCodeChecksumToolFailed          ErrorCode = "CHECKSUM_TOOL_FAILED"
	ErrCodeMigrationHistoryQueryFailed ErrorCode = "MIGRATION_HISTORY_QUERY_FAILED"

	ErrCodeInvalidInvoicePayload  ErrorCode = "INVALID_INVOICE_PAYLOAD"
	ErrCodePredictionRecordFailed ErrorCode = "PREDICTION_RECORD_FAILED"
	ErrCodeAlertSendFailed        ErrorCode = "ALERT_SEND_FAILED"
	ErrCodeSidecarUnavailable     ErrorCode = "SIDECAR_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

// Reason returns the most specific human-readable description of the error.
func (e *StandardError) Reason() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Message
}

// BPMNError represents an error that can be thrown to the workflow engine.
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

// ToErrorVariables returns a map suitable for job fail variables.
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

// NewChecksumReadFailedError creates a non-retryable file read error.
func NewChecksumReadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChecksumReadFailed,
		Message:   "Failed to read migration file",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewChecksumInvalidEncodingError is returned for files that are not valid UTF-8.
func NewChecksumInvalidEncodingError(path string, offset int) *StandardError {
	return &StandardError{
		Code:      ErrCodeChecksumInvalidEncoding,
		Message:   "Migration file is not valid UTF-8",
		Details:   fmt.Sprintf("invalid utf-8 sequence at byte offset %d", offset),
		Retryable: false,
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewMigrationScanFailedError wraps a directory walk failure.
func NewMigrationScanFailedError(root string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMigrationScanFailed,
		Message:   "Failed to scan for migration files",
		Details:   fmt.Sprintf("root: %s, error: %s", root, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChecksumToolFailedError is returned when the checksum subprocess cannot be started.
func NewChecksumToolFailedError(tool string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChecksumToolFailed,
		Message:   "Failed to run checksum tool",
		Details:   fmt.Sprintf("tool: %s, error: %s", tool, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMigrationHistoryQueryFailedError creates a retryable history table query error.
func NewMigrationHistoryQueryFailedError(table string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMigrationHistoryQueryFailed,
		Message:   "Failed to read migration history",
		Details:   fmt.Sprintf("table: %s, error: %s", table, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInvoicePayloadError creates a non-retryable validation error.
func NewInvalidInvoicePayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInvoicePayload,
		Message:   "Invoice payload failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPredictionRecordFailedError wraps a recorder backend failure.
func NewPredictionRecordFailedError(backend string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionRecordFailed,
		Message:   "Failed to record prediction",
		Details:   fmt.Sprintf("backend: %s, error: %s", backend, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlertSendFailedError wraps a notifier failure.
func NewAlertSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlertSendFailed,
		Message:   "Failed to send anomaly alert",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSidecarUnavailableError is produced by the sidecar client before failing open.
func NewSidecarUnavailableError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSidecarUnavailable,
		Message:   "Anomaly sidecar unavailable",
		Details:   fmt.Sprintf("url: %s, error: %s", url, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInvoicePayload:  "INVALID_INVOICE_PAYLOAD",
	ErrCodePredictionRecordFailed: "PREDICTION_RECORD_FAILED",
	ErrCodeAlertSendFailed:        "ALERT_SEND_FAILED",
	ErrCodeSidecarUnavailable:     "SIDECAR_UNAVAILABLE",
	ErrCodeInternal:               "INTERNAL_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeMigrationHistoryQueryFailed,
		ErrCodePredictionRecordFailed,
		ErrCodeAlertSendFailed:
		return 3
	case ErrCodeSidecarUnavailable:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CHECKSUM") || strings.Contains(codeStr, "MIGRATION"):
		return "MIGRATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "RECORD") || strings.Contains(codeStr, "ALERT"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "SIDECAR"):
		return "SIDECAR"
	default:
		return "OTHER"
	}
}

// AsStandardError unwraps err into a *StandardError when possible.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

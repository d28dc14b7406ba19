package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name            string
		err             *StandardError
		expectedCode    string
		expectedRetries int
	}{
		{
			name:            "invalid payload is not retried",
			err:             NewInvalidInvoicePayloadError("amount: required"),
			expectedCode:    "INVALID_INVOICE_PAYLOAD",
			expectedRetries: 0,
		},
		{
			name:            "record failure is retried",
			err:             NewPredictionRecordFailedError("redis", fmt.Errorf("connection refused")),
			expectedCode:    "PREDICTION_RECORD_FAILED",
			expectedRetries: 3,
		},
		{
			name:            "unmapped code falls back to raw code",
			err:             NewMigrationScanFailedError(".", fmt.Errorf("permission denied")),
			expectedCode:    "MIGRATION_SCAN_FAILED",
			expectedRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.expectedCode, bpmnErr.Code)
			assert.Equal(t, tt.expectedRetries, bpmnErr.Retries)
			assert.Equal(t, string(tt.err.Code), bpmnErr.ErrorVariables["originalErrorCode"])

			vars := bpmnErr.ToErrorVariables()
			assert.Equal(t, tt.expectedCode, vars["errorCode"])
			assert.Equal(t, tt.err.Retryable, vars["retryable"])
		})
	}
}

func TestStandardError_ReasonAndMessage(t *testing.T) {
	err := NewChecksumReadFailedError("a.sql", fmt.Errorf("open a.sql: no such file or directory"))
	assert.Equal(t, "open a.sql: no such file or directory", err.Reason())
	assert.Contains(t, err.Error(), "CHECKSUM_READ_FAILED")

	bare := &StandardError{Code: ErrCodeInternal, Message: "Unexpected error"}
	assert.Equal(t, "Unexpected error", bare.Reason())
	assert.Equal(t, "StandardError[INTERNAL_ERROR]: Unexpected error", bare.Error())
}

func TestNormalizeAndAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewSidecarUnavailableError("http://sidecar", stderrors.New("timeout")))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSidecarUnavailable, stdErr.Code)

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "MIGRATION", GetErrorCategory(ErrCodeChecksumReadFailed))
	assert.Equal(t, "MIGRATION", GetErrorCategory(ErrCodeMigrationHistoryQueryFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInvoicePayload))
	assert.Equal(t, "INTEGRATION", GetErrorCategory(ErrCodeAlertSendFailed))
	assert.Equal(t, "SIDECAR", GetErrorCategory(ErrCodeSidecarUnavailable))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
	assert.True(t, IsRetryableErrorCode(ErrCodeSidecarUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidInvoicePayload))
}

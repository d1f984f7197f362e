package generate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "vinreport-workers/internal/common/errors"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/validation"
	"vinreport-workers/internal/models"
	"vinreport-workers/internal/report"
)

// ==========================
// Mocks
// ==========================

type MockArtifacts struct {
	mock.Mock
}

func (m *MockArtifacts) GetArtifact(ctx context.Context, params models.Params) (*report.Artifact, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Artifact), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createTestConfig() *Config {
	return &Config{Enabled: true, MaxJobsActive: 5, Timeout: 5 * time.Second}
}

func createTestParams(overrides map[string]string) models.Params {
	values := map[string]string{
		"token": "secret-token",
		"sts":   "77УМ123456",
		"vin":   "XTA210990Y2765499",
	}
	for k, v := range overrides {
		values[k] = v
	}
	return models.NewParams(values)
}

func createTestHandler(t *testing.T, artifacts ArtifactSource) *Handler {
	t.Helper()
	sets, err := validation.NewSets(validation.DefaultPatterns())
	require.NoError(t, err)

	h, err := NewHandler(createTestConfig(), sets.Report, artifacts, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

// ==========================
// Tests
// ==========================

func TestNewHandler(t *testing.T) {
	sets, err := validation.NewSets(validation.DefaultPatterns())
	require.NoError(t, err)

	tests := []struct {
		name    string
		config  *Config
		rules   Validator
		source  ArtifactSource
		wantErr string
	}{
		{name: "valid", config: createTestConfig(), rules: sets.Report, source: &MockArtifacts{}},
		{name: "nil config uses defaults", rules: sets.Report, source: &MockArtifacts{}},
		{
			name:    "zero timeout",
			config:  &Config{MaxJobsActive: 1},
			rules:   sets.Report,
			source:  &MockArtifacts{},
			wantErr: "timeout must be positive",
		},
		{
			name:    "missing source",
			config:  createTestConfig(),
			rules:   sets.Report,
			wantErr: "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHandler(tt.config, tt.rules, tt.source, nil, logger.NewTestLogger(t))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	source := &MockArtifacts{}
	params := createTestParams(nil)
	source.On("GetArtifact", mock.Anything, params).Return(&report.Artifact{
		Name:   "77УМ123456_XTA210990Y2765499.html",
		Path:   "/reports/77УМ123456_XTA210990Y2765499.html",
		Size:   2048,
		Cached: true,
	}, nil)

	h := createTestHandler(t, source)
	out, err := h.Execute(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, &Output{
		ReportName: "77УМ123456_XTA210990Y2765499.html",
		ReportPath: "/reports/77УМ123456_XTA210990Y2765499.html",
		Cached:     true,
		SizeBytes:  2048,
	}, out)
	source.AssertExpectations(t)
}

func TestHandler_Execute_ValidationFailures(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantCode  int
		wantMsg   string
	}{
		{name: "missing token", overrides: map[string]string{"token": "null"}, wantCode: 405, wantMsg: "Missing token"},
		{name: "missing sts", overrides: map[string]string{"sts": "null"}, wantCode: 405, wantMsg: "Missing sts"},
		{name: "malformed sts", overrides: map[string]string{"sts": "bad"}, wantCode: 406, wantMsg: "Invalid sts"},
		{name: "malformed vin", overrides: map[string]string{"vin": "SHORT"}, wantCode: 406, wantMsg: "Invalid vin"},
		{name: "neither vin nor grz", overrides: map[string]string{"vin": "null"}, wantCode: 405, wantMsg: "vin or grz must be specified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &MockArtifacts{}
			h := createTestHandler(t, source)

			_, err := h.Execute(context.Background(), createTestParams(tt.overrides))
			require.Error(t, err)

			ve, ok := apperrors.AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, ve.Code)
			assert.Equal(t, tt.wantMsg, ve.Reason)
			source.AssertNotCalled(t, "GetArtifact", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Execute_PipelineErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode apperrors.ErrorCode
	}{
		{"remote error is not retried", &apperrors.RemoteError{Code: 3, Message: "token expired"}, apperrors.ErrCodeRemoteError},
		{"transport error is retried", &apperrors.TransportError{Status: 502, Body: "bad gateway"}, apperrors.ErrCodeTransportError},
		{"render failure", fmt.Errorf("%w: template", report.ErrRenderFailed), apperrors.ErrCodeReportGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &MockArtifacts{}
			source.On("GetArtifact", mock.Anything, mock.Anything).Return(nil, tt.err)

			h := createTestHandler(t, source)
			_, err := h.Execute(context.Background(), createTestParams(nil))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.FromError(err).Code)
		})
	}
}

func TestHandler_Execute_ErrorDecision(t *testing.T) {
	source := &MockArtifacts{}
	source.On("GetArtifact", mock.Anything, mock.Anything).Return(nil, &apperrors.TransportError{Status: 503})
	h := createTestHandler(t, source)

	_, err := h.Execute(context.Background(), createTestParams(nil))
	require.Error(t, err)

	action := h.errorHandler.Decide(err, 3)
	assert.False(t, action.Throw)
	assert.Equal(t, int32(2), action.Retries)

	_, err = h.Execute(context.Background(), createTestParams(map[string]string{"sts": "bad"}))
	action = h.errorHandler.Decide(err, 3)
	assert.True(t, action.Throw)
	assert.Equal(t, "REPORT_VALIDATION_ERROR", action.BPMN.Code)
}

package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "Invalid request type",
			details:   "type must be quick, standard or comprehensive",
			requestID: "req-123",
		},
		{
			name:      "Upstream error",
			code:      ErrExternalAPI,
			message:   "Model call failed",
			details:   "circuit breaker is open",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestInsufficientDataErrorMessage(t *testing.T) {
	err := &InsufficientDataError{
		Score:    15,
		Warnings: []string{"Data yang tersedia sangat terbatas. Rekomendasi mungkin tidak akurat.", "Anamnesis terlalu singkat untuk analisis menyeluruh."},
	}

	want := "Data tidak cukup untuk memberikan rekomendasi. Skor: 15/100. " +
		"Data yang tersedia sangat terbatas. Rekomendasi mungkin tidak akurat.. " +
		"Anamnesis terlalu singkat untuk analisis menyeluruh."
	if err.Error() != want {
		t.Errorf("unexpected message:\n got: %s\nwant: %s", err.Error(), want)
	}
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &UpstreamError{Op: "generate", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected UpstreamError to unwrap to its cause")
	}
	if err.Error() != "Gagal menghasilkan rekomendasi: connection reset" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient", fmt.Errorf("route: %w", &InsufficientDataError{Score: 10}), http.StatusUnprocessableEntity, ErrInsufficientData},
		{"upstream", &UpstreamError{Err: errors.New("boom")}, http.StatusBadGateway, ErrExternalAPI},
		{"validation", NewValidationError("type", "bad", "x"), http.StatusBadRequest, ErrValidation},
		{"not found", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound, ErrNotFoundCode},
		{"rate limit", NewAPIError(ErrRateLimit, "slow down", "", ""), http.StatusTooManyRequests, ErrRateLimit},
		{"unknown", errors.New("unexpected"), http.StatusInternalServerError, ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := ClassifyError(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("ClassifyError() = (%d, %s), want (%d, %s)", status, code, tt.status, tt.code)
			}
		})
	}
}

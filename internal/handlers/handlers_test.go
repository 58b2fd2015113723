package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"studymap-backend/internal/models"
	"studymap-backend/internal/services"
)

// ─── Error Envelope Tests ───

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid actor", models.ErrInvalidActor, http.StatusBadRequest, "INVALID_ACTOR"},
		{"invalid session type", models.ErrInvalidSessionType, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid coordinates", models.ErrInvalidCoordinates, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"session not found", models.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"session inactive", models.ErrSessionInactive, http.StatusConflict, "SESSION_INACTIVE"},
		{"store contention", fmt.Errorf("gave up: %w", models.ErrStoreContention), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"unauthorized", &services.UnauthorizedError{Message: "Invalid credentials"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"conflict", &services.ConflictError{Message: "Email already registered"}, http.StatusConflict, "CONFLICT"},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/active", nil)
			req.Header.Set("X-Request-ID", "req-123")

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rr.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("Expected code %q, got %q", tc.wantCode, resp.Error.Code)
			}
			if resp.Error.RequestID != "req-123" {
				t.Errorf("Expected request id to be echoed, got %q", resp.Error.RequestID)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]interface{}{"session": "s-1"})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", ct)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["session"] != "s-1" {
		t.Errorf("Expected session 's-1', got %v", result["session"])
	}
}

func TestErrorRespWithFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	req.Header.Set("X-Request-ID", "req-456")

	resp := errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{
		"email": "Invalid email format",
	}, req)

	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %q", resp.Error.Code)
	}
	if resp.Error.Fields["email"] == "" {
		t.Error("Expected field error for email")
	}
	if resp.Error.RequestID != "req-456" {
		t.Errorf("Expected request id 'req-456', got %q", resp.Error.RequestID)
	}
}

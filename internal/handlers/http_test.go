package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/handlers"
	"github.com/abrezinsky/talentscout/internal/services"
)

func TestAPIError_Error(t *testing.T) {
	err := handlers.NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "test message")

	if err.Error() != "test message" {
		t.Errorf("expected 'test message', got %q", err.Error())
	}
	if err.Code != "BAD_REQUEST" {
		t.Errorf("expected code 'BAD_REQUEST', got %q", err.Code)
	}
}

func TestBadRequest(t *testing.T) {
	err := handlers.BadRequest("missing field")
	if err.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", err.Status)
	}
	if err.Code != handlers.ErrCodeBadRequest {
		t.Errorf("expected code BAD_REQUEST, got %q", err.Code)
	}

	err = handlers.BadRequest("Invalid limit parameter")
	if err.Code != handlers.ErrCodeValidation {
		t.Errorf("expected code VALIDATION_ERROR for 'invalid' message, got %q", err.Code)
	}
}

func TestNotFound(t *testing.T) {
	err := handlers.NotFound("resource not found")

	if err.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", err.Status)
	}
	if err.Message != "resource not found" {
		t.Errorf("expected message 'resource not found', got %q", err.Message)
	}
}

func TestInternalError(t *testing.T) {
	err := handlers.InternalError(fmt.Errorf("db connection failed"))

	if err.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", err.Status)
	}
	// Internal errors should not expose the original message
	if err.Message != "Internal server error" {
		t.Errorf("expected generic message, got %q", err.Message)
	}
}

func TestToAPIError_DirectTests(t *testing.T) {
	tests := []struct {
		name           string
		inputErr       error
		expectedStatus int
		expectedMsg    string
		expectedCode   string
	}{
		{
			name:           "NotFoundError",
			inputErr:       errors.NotFound("resource not found"),
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "resource not found",
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "ValidationError",
			inputErr:       errors.Validation("validation failed"),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "validation failed",
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "InvalidInputError",
			inputErr:       errors.InvalidInput("invalid input"),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid input",
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "ConflictError",
			inputErr:       errors.Conflict("resource conflict"),
			expectedStatus: http.StatusConflict,
			expectedMsg:    "resource conflict",
			expectedCode:   "CONFLICT",
		},
		{
			name:           "PersistenceError",
			inputErr:       errors.Persistence("save candidate", fmt.Errorf("disk full")),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Internal server error",
			expectedCode:   "INTERNAL_SERVER_ERROR",
		},
		{
			name:           "WrappedNotFound",
			inputErr:       fmt.Errorf("loading: %w", errors.NotFound("candidate x not found")),
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "candidate x not found",
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "ServiceError",
			inputErr:       services.ErrNoCandidateIDs,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "no candidate ids specified",
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "UnknownSportError",
			inputErr:       &services.UnknownSportError{Sport: "chess"},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "unknown sport: chess",
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "GenericError",
			inputErr:       fmt.Errorf("generic error"),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Internal server error",
			expectedCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tt.inputErr)
			if apiErr.Status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, apiErr.Status)
			}
			if apiErr.Message != tt.expectedMsg {
				t.Errorf("expected message %q, got %q", tt.expectedMsg, apiErr.Message)
			}
			if apiErr.Code != tt.expectedCode {
				t.Errorf("expected code %q, got %q", tt.expectedCode, apiErr.Code)
			}
		})
	}
}

func TestToAPIError_CarriesValidationDetails(t *testing.T) {
	err := errors.Validations("import rejected", []string{"Row 2: Name is required", "Row 3: Invalid date format"})

	apiErr := handlers.ToAPIError(err)

	if len(apiErr.Details) != 2 || apiErr.Details[0] != "Row 2: Name is required" {
		t.Errorf("expected details to be carried over, got %v", apiErr.Details)
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/candidates", "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", rec.Code)
	}
	if !strings.Contains(strings.ToLower(rec.Body.String()), "empty") {
		t.Errorf("expected error to mention 'empty', got %q", rec.Body.String())
	}
}

func TestDecodeJSON_InvalidJSON(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/candidates", "{invalid}")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "JSON") {
		t.Errorf("expected error to mention 'JSON', got %q", rec.Body.String())
	}
}

func TestErrorResponseShape(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/api/candidates/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["code"] != "NOT_FOUND" {
		t.Errorf("expected code NOT_FOUND, got %v", body["code"])
	}
	if _, ok := body["error"]; !ok {
		t.Error("expected error field in response")
	}
}

func TestQueryParam_Invalid(t *testing.T) {
	setup := newTestSetup(t)

	for _, path := range []string{
		"/api/rankings?limit=abc",
		"/api/rankings?ageMin=-1",
		"/api/rankings?ageMin=14&ageMax=10",
		"/api/candidates?sport=football&minScore=high",
	} {
		rec := httptest.NewRecorder()
		setup.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

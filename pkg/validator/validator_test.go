package validator_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/igrejaconnect/campaign-service/handlers"
	"github.com/igrejaconnect/campaign-service/pkg/validator"
)

func TestCustomValidator_ValidateReturnsValidationError(t *testing.T) {
	cv := validator.New()

	req := handlers.SendCampaignRequest{
		// Name and Message left empty to trigger validation errors
	}

	err := cv.Validate(req)
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}

	ve, ok := err.(*validator.ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	if len(ve.Errors) == 0 {
		t.Fatalf("expected at least one validation error, got none")
	}

	if _, exists := ve.Errors["name"]; !exists {
		t.Errorf("expected 'name' to be in validation errors")
	}
	if _, exists := ve.Errors["message"]; !exists {
		t.Errorf("expected 'message' to be in validation errors")
	}
}

func TestCustomValidator_NestedCriteriaFieldsUseJSONNames(t *testing.T) {
	cv := validator.New()

	req := handlers.SendCampaignRequest{
		Name:    "easter-service",
		Message: "Paz do Senhor!",
		Criteria: handlers.FilterRecipientsRequest{
			Gender:    "X",
			DateStart: "31/12/2024",
		},
	}

	err := cv.Validate(req)
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}

	ve, ok := err.(*validator.ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	if _, exists := ve.Errors["gender"]; !exists {
		t.Errorf("expected 'gender' to be in validation errors, got %v", ve.Errors)
	}
	if _, exists := ve.Errors["dateStart"]; !exists {
		t.Errorf("expected 'dateStart' to be in validation errors, got %v", ve.Errors)
	}
}

func TestHandleValidationError_Returns422WithDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	c := e.NewContext(req, rec)

	cv := validator.New()
	err := cv.Validate(handlers.SendCampaignRequest{})

	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}

	if err := validator.HandleValidationError(c, err); err != nil {
		t.Fatalf("HandleValidationError returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var body validator.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body.Success {
		t.Errorf("expected Success=false, got true")
	}
	if body.Error != "Validation failed" {
		t.Errorf("expected error='Validation failed', got %q", body.Error)
	}
	if len(body.Details) == 0 {
		t.Fatalf("expected details in validation response, got none")
	}
}

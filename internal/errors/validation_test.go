package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidationError(t *testing.T) {
	// Test NewValidationError
	err := NewValidationError("test_field", "test message", "test_value")

	if err.Field != "test_field" {
		t.Errorf("Expected field to be 'test_field', got '%s'", err.Field)
	}

	if err.Message != "test message" {
		t.Errorf("Expected message to be 'test message', got '%s'", err.Message)
	}

	if err.Value != "test_value" {
		t.Errorf("Expected value to be 'test_value', got '%v'", err.Value)
	}

	// Test Error method
	expected := "validation error on field 'test_field': test message"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	// Test empty ValidationErrors
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	// Test single ValidationError
	errs = append(errs, *NewValidationError("field1", "message1", nil))
	expected := "validation failed: field1 message1"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	// Test multiple ValidationErrors
	errs = append(errs, *NewValidationError("field2", "message2", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("test_field", "test message", "required", "test_value")

	if err.Rule != "required" {
		t.Errorf("Expected rule to be 'required', got '%s'", err.Rule)
	}

	if err.Field != "test_field" {
		t.Errorf("Expected field to be 'test_field', got '%s'", err.Field)
	}
}

type sessionPatch struct {
	Score  int    `validate:"max=100"`
	Status string `validate:"required"`
}

type batchRequest struct {
	TestIDs []uint `validate:"min=1"`
}

func TestToValidationErrors(t *testing.T) {
	err := validator.New().Struct(sessionPatch{Score: 150})

	errs := ToValidationErrors(err)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(errs))
	}
	if errs[0].Field != "Score" || errs[0].Message != "must be at most 100" || errs[0].Rule != "max" {
		t.Errorf("Unexpected first error: %+v", errs[0])
	}
	if errs[1].Message != "is required" {
		t.Errorf("Expected 'is required', got '%s'", errs[1].Message)
	}

	items := validator.New().Struct(batchRequest{TestIDs: []uint{}})
	if errs := ToValidationErrors(items); len(errs) != 1 || errs[0].Message != "must contain at least 1 items" {
		t.Errorf("Expected a collection message, got %+v", errs)
	}

	if got := ToValidationErrors(nil); got != nil {
		t.Errorf("Expected nil for a nil error, got %v", got)
	}
}

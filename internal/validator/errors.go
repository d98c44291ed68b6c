package validator

import (
	apperrors "github.com/SAP-F-2025/test-engine-service/internal/errors"
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// Rules reported by ResponseValidator
const (
	RuleResponseShape   = "response_shape"
	RuleSingleSelection = "single_selection"
	RuleUnique          = "unique"
)

func newResponseError(field, message, rule string, value interface{}) *ValidationError {
	return apperrors.NewValidationErrorWithRule(field, message, rule, value)
}

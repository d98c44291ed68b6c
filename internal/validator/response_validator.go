package validator

import (
	"fmt"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// ResponseValidator checks that a submitted response uses the shape of its question type
type ResponseValidator struct{}

// NewResponseValidator creates a new response validator
func NewResponseValidator() *ResponseValidator {
	return &ResponseValidator{}
}

// ValidateResponse reports a shape error for field. An empty response is always valid (skipped question).
func (v *ResponseValidator) ValidateResponse(field string, questionType models.QuestionType, response models.SubmittedResponse) *ValidationError {
	if response.IsEmpty() {
		return nil
	}

	expected, populated := v.expectedShape(questionType), v.populatedShapes(response)
	if expected == "" {
		// Unknown types are scored as anomalies, not rejected.
		return nil
	}
	if len(populated) != 1 || populated[0] != expected {
		return newResponseError(field, fmt.Sprintf("%s answers must use only %s", questionType, expected), RuleResponseShape, populated)
	}

	switch questionType {
	case models.SingleChoice, models.TrueFalse:
		if len(response.SelectedAnswerIDs) > 1 {
			return newResponseError(field, fmt.Sprintf("%s accepts a single selection", questionType), RuleSingleSelection, response.SelectedAnswerIDs)
		}
	case models.MultipleChoice:
		if hasDuplicates(response.SelectedAnswerIDs) {
			return newResponseError(field, "selected_answer_ids must be unique", RuleUnique, response.SelectedAnswerIDs)
		}
	case models.Sequence:
		if hasDuplicates(response.Order) {
			return newResponseError(field, "order must not repeat an item", RuleUnique, response.Order)
		}
	}
	return nil
}

func (v *ResponseValidator) expectedShape(questionType models.QuestionType) string {
	switch questionType {
	case models.SingleChoice, models.MultipleChoice, models.TrueFalse:
		return "selected_answer_ids"
	case models.Matching:
		return "pairs"
	case models.Sequence:
		return "order"
	case models.DragDrop:
		return "placements"
	case models.DropdownFill:
		return "selections"
	default:
		return ""
	}
}

func (v *ResponseValidator) populatedShapes(response models.SubmittedResponse) []string {
	var shapes []string
	if len(response.SelectedAnswerIDs) > 0 {
		shapes = append(shapes, "selected_answer_ids")
	}
	if len(response.Pairs) > 0 {
		shapes = append(shapes, "pairs")
	}
	if len(response.Order) > 0 {
		shapes = append(shapes, "order")
	}
	if len(response.Placements) > 0 {
		shapes = append(shapes, "placements")
	}
	if len(response.Selections) > 0 {
		shapes = append(shapes, "selections")
	}
	return shapes
}

func hasDuplicates(ids []uint) bool {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

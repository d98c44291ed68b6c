package repositories

import (
	"context"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// QuestionRepository reads questions and their per-type answer records.
type QuestionRepository interface {
	// GetByTest returns the test's questions in position order, without answers.
	GetByTest(ctx context.Context, testID uint) ([]*models.Question, error)
	// GetAnswers loads the answer payload of each question, dispatching on its type.
	// Questions with no answer records are absent from the map.
	GetAnswers(ctx context.Context, questions []*models.Question) (map[uint]models.AnswerPayload, error)
}

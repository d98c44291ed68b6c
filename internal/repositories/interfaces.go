package repositories

import (
	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// Repository groups the per-aggregate repositories behind one handle.
type Repository interface {
	Test() TestRepository
	Question() QuestionRepository
	Session() SessionRepository
	UserAnswer() UserAnswerRepository
	Purchase() PurchaseRepository
	Profile() ProfileRepository
}

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	UserID string                `json:"user_id"`
	TestID *uint                 `json:"test_id"`
	Status *models.SessionStatus `json:"status"`
	Limit  int                   `json:"limit"`
}

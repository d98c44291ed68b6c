package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// SessionRepository stores test sessions. Every write is conditional so concurrent
// requests cannot produce two in_progress rows or interleave submissions.
type SessionRepository interface {
	GetByID(ctx context.Context, id string) (*models.TestSession, error)

	// GetActive returns nil, nil when the user has no in_progress session for the test.
	GetActive(ctx context.Context, userID string, testID uint) (*models.TestSession, error)
	List(ctx context.Context, filters SessionFilters) ([]*models.TestSession, error)

	// CreateIfNoActive inserts session unless an in_progress one exists for (user, test).
	// It returns the stored session and whether it was created by this call.
	CreateIfNoActive(ctx context.Context, session *models.TestSession) (*models.TestSession, bool, error)

	// Update writes session if its Version still matches, then bumps Version.
	// Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, session *models.TestSession) error

	// Expire flips an in_progress session to expired. Returns false if it was no longer in_progress.
	Expire(ctx context.Context, id string, at time.Time) (bool, error)

	// ReplaceAnswers deletes the session's answers, inserts answers and updates session as one unit,
	// guarded by session.Version.
	ReplaceAnswers(ctx context.Context, session *models.TestSession, answers []*models.UserAnswer) error
}

type UserAnswerRepository interface {
	GetBySession(ctx context.Context, sessionID string) ([]*models.UserAnswer, error)
	GetBySessions(ctx context.Context, sessionIDs []string) (map[string][]*models.UserAnswer, error)
}

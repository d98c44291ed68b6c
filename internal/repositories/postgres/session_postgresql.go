package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// createRetries bounds the insert/lookup loop when the active row disappears between the two steps.
const createRetries = 3

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s SessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) GetActive(ctx context.Context, userID string, testID uint) (*models.TestSession, error) {
	return s.getActive(s.db.WithContext(ctx), userID, testID)
}

func (s SessionPostgreSQL) getActive(db *gorm.DB, userID string, testID uint) (*models.TestSession, error) {
	var session models.TestSession
	if err := db.
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, models.SessionInProgress).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.TestSession, error) {
	query := s.db.WithContext(ctx).Model(&models.TestSession{}).Where("user_id = ?", filters.UserID)
	if filters.TestID != nil {
		query = query.Where("test_id = ?", *filters.TestID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var sessions []*models.TestSession
	if err := query.Order("start_time DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s SessionPostgreSQL) CreateIfNoActive(ctx context.Context, session *models.TestSession) (*models.TestSession, bool, error) {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < createRetries; attempt++ {
		// The partial unique index turns a concurrent duplicate into a no-op insert.
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(session)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected == 1 {
			return session, true, nil
		}

		existing, err := s.getActive(db, session.UserID, session.TestID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("failed to create session for user %s test %d: %w",
		session.UserID, session.TestID, repositories.ErrVersionConflict)
}

func (s SessionPostgreSQL) Update(ctx context.Context, session *models.TestSession) error {
	return s.update(s.db.WithContext(ctx), session)
}

func (s SessionPostgreSQL) update(db *gorm.DB, session *models.TestSession) error {
	now := time.Now()
	res := db.Model(&models.TestSession{}).
		Where("id = ? AND version = ?", session.ID, session.Version).
		Updates(map[string]interface{}{
			"status":                 session.Status,
			"end_time":               session.EndTime,
			"submitted_at":           session.SubmittedAt,
			"time_spent":             session.TimeSpent,
			"score":                  session.Score,
			"current_question_index": session.CurrentQuestionIndex,
			"progress":               session.Progress,
			"version":                gorm.Expr("version + 1"),
			"updated_at":             now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.ErrVersionConflict
	}

	session.Version++
	session.UpdatedAt = now
	return nil
}

func (s SessionPostgreSQL) Expire(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.TestSession{}).
		Where("id = ? AND status = ?", id, models.SessionInProgress).
		Updates(map[string]interface{}{
			"status":     models.SessionExpired,
			"end_time":   at,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s SessionPostgreSQL) ReplaceAnswers(ctx context.Context, session *models.TestSession, answers []*models.UserAnswer) error {
	version := session.Version
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The conditional update takes the row lock first, so a concurrent submitter
		// blocks here and then fails the version check.
		if err := s.update(tx, session); err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.UserAnswer{}).Error; err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		if len(answers) == 0 {
			return nil
		}
		if err := tx.Create(answers).Error; err != nil {
			return fmt.Errorf("failed to insert answers: %w", err)
		}
		return nil
	})
	if err != nil {
		session.Version = version
		return err
	}
	return nil
}

type UserAnswerPostgreSQL struct {
	db *gorm.DB
}

func NewUserAnswerPostgreSQL(db *gorm.DB) repositories.UserAnswerRepository {
	return &UserAnswerPostgreSQL{db: db}
}

func (u UserAnswerPostgreSQL) GetBySession(ctx context.Context, sessionID string) ([]*models.UserAnswer, error) {
	var answers []*models.UserAnswer
	if err := u.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (u UserAnswerPostgreSQL) GetBySessions(ctx context.Context, sessionIDs []string) (map[string][]*models.UserAnswer, error) {
	result := make(map[string][]*models.UserAnswer, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return result, nil
	}

	var answers []*models.UserAnswer
	if err := u.db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	for _, a := range answers {
		result[a.SessionID] = append(result[a.SessionID], a)
	}
	return result, nil
}

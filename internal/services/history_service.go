package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/shopspring/decimal"
)

// HistoryService aggregates a user's graded attempts at one test
type HistoryService interface {
	GetTestHistory(ctx context.Context, userID string, testID uint) (*TestHistory, error)
}

type historyService struct {
	repo    repositories.Repository
	content ContentService
	logger  *ServiceLogger
}

func NewHistoryService(repo repositories.Repository, content ContentService, logger *slog.Logger) HistoryService {
	return &historyService{
		repo:    repo,
		content: content,
		logger:  NewServiceLogger(logger, "history"),
	}
}

// GetTestHistory returns attempts newest first. Percentages use the test's question count,
// the same denominator as submission scoring.
func (s *historyService) GetTestHistory(ctx context.Context, userID string, testID uint) (history *TestHistory, err error) {
	ctx, op := s.logger.Start(ctx, "get_test_history", userID)
	defer func() { op.End(strconv.FormatUint(uint64(testID), 10), err) }()

	if userID == "" {
		return nil, ErrUnauthorized
	}

	test, err := s.content.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.Session().List(ctx, repositories.SessionFilters{
		UserID: userID,
		TestID: &testID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]*models.TestSession, 0, len(all))
	for _, session := range all {
		if session.IsGraded() {
			sessions = append(sessions, session)
		}
	}

	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	answers, err := s.repo.UserAnswer().GetBySessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load session answers: %w", err)
	}

	history = &TestHistory{
		TestID:   testID,
		Attempts: make([]AttemptStats, 0, len(sessions)),
	}
	questionCount := test.QuestionCount()
	for _, session := range sessions {
		history.Attempts = append(history.Attempts, attemptStats(session, answers[session.ID], questionCount))
	}
	history.Overall = overallStats(history.Attempts)
	return history, nil
}

func attemptStats(session *models.TestSession, answers []*models.UserAnswer, questionCount int) AttemptStats {
	stats := AttemptStats{
		SessionID:      session.ID,
		StartTime:      session.StartTime,
		EndTime:        session.EndTime,
		Score:          session.Score,
		TimeSpent:      session.TimeSpent,
		TotalQuestions: questionCount,
	}
	for _, a := range answers {
		if a.IsCorrect {
			stats.CorrectCount++
		}
		if a.IsAnswered {
			stats.AnsweredCount++
		}
	}
	stats.Percentage = percentage(stats.CorrectCount, questionCount)
	return stats
}

// overallStats expects attempts newest first.
func overallStats(attempts []AttemptStats) OverallStats {
	overall := OverallStats{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return overall
	}

	scoreSum, percentageSum := decimal.Zero, decimal.Zero
	for _, a := range attempts {
		overall.BestScore = max(overall.BestScore, a.Score)
		overall.TotalTimeSpent += a.TimeSpent
		scoreSum = scoreSum.Add(decimal.NewFromInt(int64(a.Score)))
		percentageSum = percentageSum.Add(decimal.NewFromInt(int64(a.Percentage)))
	}

	n := decimal.NewFromInt(int64(len(attempts)))
	overall.AverageScore = scoreSum.Div(n).Round(2).InexactFloat64()
	overall.AveragePercentage = percentageSum.Div(n).Round(2).InexactFloat64()

	last := attempts[0].StartTime
	if attempts[0].EndTime != nil {
		last = *attempts[0].EndTime
	}
	overall.LastAttemptAt = &last
	return overall
}

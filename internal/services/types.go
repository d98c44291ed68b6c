package services

import (
	"encoding/json"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// ===== SESSION DTOs =====

type SessionResult struct {
	Session *models.TestSession `json:"session"`
	Resumed bool                `json:"resumed"`
}

// SessionUpdate carries the fields a test-taker may change. Nil fields are left untouched.
type SessionUpdate struct {
	Status               *models.SessionStatus `json:"status,omitempty" validate:"omitempty,session_status"`
	Score                *int                  `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	TimeSpent            *int                  `json:"time_spent,omitempty" validate:"omitempty,min=0"`
	EndTime              *time.Time            `json:"end_time,omitempty"`
	CurrentQuestionIndex *int                  `json:"current_question_index,omitempty" validate:"omitempty,min=0"`
	Progress             json.RawMessage       `json:"progress,omitempty"`
}

func (u *SessionUpdate) IsEmpty() bool {
	return u == nil || (u.Status == nil && u.Score == nil && u.TimeSpent == nil &&
		u.EndTime == nil && u.CurrentQuestionIndex == nil && len(u.Progress) == 0)
}

type AnswerSubmission struct {
	QuestionID uint                     `json:"question_id" validate:"required"`
	TimeSpent  int                      `json:"time_spent" validate:"min=0"`
	Response   models.SubmittedResponse `json:"response"`
}

type SubmitAnswersRequest struct {
	Answers []AnswerSubmission `json:"answers" validate:"dive"`
	// TotalQuestions is the scoring denominator; 0 falls back to the test's question count.
	TotalQuestions int            `json:"total_questions" validate:"min=0"`
	Session        *SessionUpdate `json:"session,omitempty"`
}

type SubmissionSummary struct {
	SessionID      string               `json:"session_id"`
	Status         models.SessionStatus `json:"status"`
	Score          int                  `json:"score"`
	CorrectCount   int                  `json:"correct_count"`
	TotalQuestions int                  `json:"total_questions"`
	AnsweredCount  int                  `json:"answered_count"`
	SkippedCount   int                  `json:"skipped_count"`
}

// SessionContent is what a test-taker needs to render an in-progress attempt.
type SessionContent struct {
	Session          *models.TestSession     `json:"session"`
	TestTitle        string                  `json:"test_title"`
	TimeLimit        int                     `json:"time_limit"`
	RemainingSeconds *int                    `json:"remaining_seconds,omitempty"`
	Questions        []models.PublicQuestion `json:"questions"`
}

// ===== HISTORY DTOs =====

type AttemptStats struct {
	SessionID      string     `json:"session_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Score          int        `json:"score"`
	TimeSpent      int        `json:"time_spent"`
	CorrectCount   int        `json:"correct_count"`
	AnsweredCount  int        `json:"answered_count"`
	TotalQuestions int        `json:"total_questions"`
	Percentage     int        `json:"percentage"`
}

type OverallStats struct {
	TotalAttempts     int        `json:"total_attempts"`
	BestScore         int        `json:"best_score"`
	AverageScore      float64    `json:"average_score"`
	AveragePercentage float64    `json:"average_percentage"`
	TotalTimeSpent    int        `json:"total_time_spent"`
	LastAttemptAt     *time.Time `json:"last_attempt_at"`
}

type TestHistory struct {
	TestID   uint           `json:"test_id"`
	Attempts []AttemptStats `json:"attempts"`
	Overall  OverallStats   `json:"overall"`
}

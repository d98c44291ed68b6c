package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionExpired    SessionStatus = "expired"
)

func (s SessionStatus) IsValid() bool {
	return s == SessionInProgress || s == SessionCompleted || s == SessionExpired
}

// IsTerminal reports whether no further transition is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionExpired
}

// TestSession is one timed attempt by one user at one test.
// At most one in_progress row may exist per (user_id, test_id); the partial unique index enforces it.
type TestSession struct {
	ID                   string         `json:"id" gorm:"primaryKey;size:36"`
	TestID               uint           `json:"test_id" gorm:"not null;index;uniqueIndex:idx_sessions_active,where:status = 'in_progress'"`
	UserID               string         `json:"user_id" gorm:"not null;size:255;index;uniqueIndex:idx_sessions_active,where:status = 'in_progress'"`
	Status               SessionStatus  `json:"status" gorm:"not null;size:20;index"`
	StartTime            time.Time      `json:"start_time" gorm:"not null"`
	EndTime              *time.Time     `json:"end_time"`
	SubmittedAt          *time.Time     `json:"submitted_at,omitempty"`
	TimeSpent            int            `json:"time_spent" gorm:"not null;default:0"` // seconds
	Score                int            `json:"score" gorm:"not null;default:0"`
	CurrentQuestionIndex int            `json:"current_question_index" gorm:"not null;default:0"`
	Progress             datatypes.JSON `json:"progress,omitempty"`

	// Version guards concurrent writers; every update bumps it.
	Version int `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}

// IsExpiredAt reports whether the time limit has elapsed at now. A zero limit never expires.
// IsGraded reports whether the session counts as a finished attempt: completed, or expired with answers submitted late.
func (s *TestSession) IsGraded() bool {
	return s.Status == SessionCompleted || (s.Status == SessionExpired && s.SubmittedAt != nil)
}

func (s *TestSession) IsExpiredAt(timeLimit time.Duration, now time.Time) bool {
	if timeLimit <= 0 {
		return false
	}
	return now.Sub(s.StartTime) >= timeLimit
}

// UserAnswer is the graded response to one question within a session.
type UserAnswer struct {
	SessionID         string                    `json:"session_id" gorm:"primaryKey;size:36"`
	QuestionID        uint                      `json:"question_id" gorm:"primaryKey"`
	TimeSpent         int                       `json:"time_spent" gorm:"not null;default:0"`
	IsCorrect         bool                      `json:"is_correct" gorm:"not null;default:false"`
	IsAnswered        bool                      `json:"is_answered" gorm:"not null;default:false"`
	SelectedAnswerIDs datatypes.JSONSlice[uint] `json:"selected_answer_ids,omitempty"`
	Response          datatypes.JSON            `json:"response,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}

// ===== SUBMITTED RESPONSES =====

// SubmittedResponse carries the test-taker's answer. Only the field matching the question type is read.
type SubmittedResponse struct {
	SelectedAnswerIDs []uint              `json:"selected_answer_ids,omitempty"`
	Pairs             []MatchPair         `json:"pairs,omitempty"`
	Order             []uint              `json:"order,omitempty"`
	Placements        []Placement         `json:"placements,omitempty"`
	Selections        []DropdownSelection `json:"selections,omitempty"`
}

type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type Placement struct {
	ItemID uint   `json:"item_id"`
	Zone   string `json:"zone"`
}

type DropdownSelection struct {
	ItemID uint   `json:"item_id"`
	Option string `json:"option"`
}

func (r SubmittedResponse) IsEmpty() bool {
	return len(r.SelectedAnswerIDs) == 0 &&
		len(r.Pairs) == 0 &&
		len(r.Order) == 0 &&
		len(r.Placements) == 0 &&
		len(r.Selections) == 0
}

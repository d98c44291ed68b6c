package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of events the engine emits or consumes
type EventType string

const (
	// Session lifecycle events
	EventSessionStarted   EventType = "session.started"
	EventSessionResumed   EventType = "session.resumed"
	EventSessionSubmitted EventType = "session.submitted"
	EventSessionExpired   EventType = "session.expired"

	// Authoring events consumed for cache invalidation
	EventTestContentChanged EventType = "test.content_changed"
)

const (
	eventSource  = "test-engine-service"
	eventVersion = "1.0"
)

// SessionEvent is the envelope for every published event
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	TestID    uint      `json:"test_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	TimeLimit int       `json:"time_limit"` // seconds
	Resumed   bool      `json:"resumed"`
}

type SessionSubmittedEvent struct {
	SessionID      string    `json:"session_id"`
	TestID         uint      `json:"test_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	Score          int       `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	AnsweredCount  int       `json:"answered_count"`
	TotalQuestions int       `json:"total_questions"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type SessionExpiredEvent struct {
	SessionID string    `json:"session_id"`
	TestID    uint      `json:"test_id"`
	UserID    string    `json:"user_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// ContentChangedEvent is published by the authoring side when a test or question changes.
type ContentChangedEvent struct {
	TestID      *uint  `json:"test_id,omitempty"`
	QuestionIDs []uint `json:"question_ids,omitempty"`
}

func NewSessionStartedEvent(sessionID string, testID uint, userID string, startedAt time.Time, timeLimit int, resumed bool) *SessionEvent {
	eventType := EventSessionStarted
	if resumed {
		eventType = EventSessionResumed
	}
	return newEvent(eventType, SessionStartedEvent{
		SessionID: sessionID,
		TestID:    testID,
		UserID:    userID,
		StartedAt: startedAt,
		TimeLimit: timeLimit,
		Resumed:   resumed,
	})
}

func NewSessionSubmittedEvent(data SessionSubmittedEvent) *SessionEvent {
	return newEvent(EventSessionSubmitted, data)
}

func NewSessionExpiredEvent(sessionID string, testID uint, userID string, expiredAt time.Time) *SessionEvent {
	return newEvent(EventSessionExpired, SessionExpiredEvent{
		SessionID: sessionID,
		TestID:    testID,
		UserID:    userID,
		ExpiredAt: expiredAt,
	})
}

func newEvent(eventType EventType, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/events"
	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/monitoring"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/SAP-F-2025/test-engine-service/internal/scoring"
	"github.com/SAP-F-2025/test-engine-service/internal/validator"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// SessionService owns the state machine of a test attempt:
// in_progress -> completed | expired, both terminal.
// Expiry is evaluated whenever a session is read; nothing runs in the background.
type SessionService interface {
	StartOrResume(ctx context.Context, userID string, testID uint) (*SessionResult, error)
	// GetActive returns nil when the user has no live session (optionally for one test).
	GetActive(ctx context.Context, userID string, testID *uint) (*models.TestSession, error)
	Get(ctx context.Context, sessionID, userID string) (*models.TestSession, error)
	Update(ctx context.Context, sessionID, userID string, req *SessionUpdate) (*models.TestSession, error)
	SubmitAnswers(ctx context.Context, sessionID, userID string, req *SubmitAnswersRequest) (*SubmissionSummary, error)
	GetSessionContent(ctx context.Context, sessionID, userID string) (*SessionContent, error)
}

// Clock supplies the current time to expiry and timestamp logic
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type SessionOption func(*sessionService)

func WithClock(clock Clock) SessionOption {
	return func(s *sessionService) { s.clock = clock }
}

func WithIDGenerator(next func() string) SessionOption {
	return func(s *sessionService) { s.newID = next }
}

type sessionService struct {
	repo      repositories.Repository
	content   ContentService
	access    AccessService
	scorer    *scoring.Scorer
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
	clock     Clock
	newID     func() string
}

func NewSessionService(
	repo repositories.Repository,
	content ContentService,
	access AccessService,
	scorer *scoring.Scorer,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
	opts ...SessionOption,
) SessionService {
	s := &sessionService{
		repo:      repo,
		content:   content,
		access:    access,
		scorer:    scorer,
		publisher: publisher,
		validator: validator,
		logger:    NewServiceLogger(logger, "session"),
		clock:     wallClock{},
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ===== LIFECYCLE =====

func (s *sessionService) StartOrResume(ctx context.Context, userID string, testID uint) (result *SessionResult, err error) {
	ctx, op := s.logger.Start(ctx, "start_session", userID)
	op.SetAttributes(attribute.Int64("test.id", int64(testID)))
	defer func() {
		var sessionID string
		if result != nil {
			sessionID = result.Session.ID
		}
		op.End(sessionID, err)
	}()

	if userID == "" {
		return nil, ErrUnauthorized
	}

	test, err := s.content.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	switch decision := s.access.Decide(ctx, userID, test.AccessInfo()); decision.Status {
	case AccessGranted:
	case AccessAuthRequired:
		return nil, ErrUnauthorized
	default:
		return nil, ErrAccessLocked
	}

	existing, err := s.repo.Session().GetActive(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}
	if existing != nil {
		existing, err = s.settleExpiry(ctx, existing, test)
		if err != nil {
			return nil, err
		}
		if existing.Status == models.SessionInProgress {
			s.publish(ctx, events.NewSessionStartedEvent(existing.ID, testID, userID, existing.StartTime, test.TimeLimit, true))
			return &SessionResult{Session: existing, Resumed: true}, nil
		}
	}

	// An unoffered test still lets an in-progress attempt resume above.
	if !test.IsOffered() {
		return nil, ErrTestNotAvailable
	}

	session := &models.TestSession{
		ID:        s.newID(),
		TestID:    testID,
		UserID:    userID,
		Status:    models.SessionInProgress,
		StartTime: s.clock.Now(),
		Version:   1,
	}
	stored, created, err := s.repo.Session().CreateIfNoActive(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if created {
		monitoring.SessionTransitions.WithLabelValues("started").Inc()
	} else {
		s.logger.Logger().InfoContext(ctx, "Concurrent start resolved to existing session",
			"session_id", stored.ID, "user_id", userID, "test_id", testID)
	}
	s.publish(ctx, events.NewSessionStartedEvent(stored.ID, testID, userID, stored.StartTime, test.TimeLimit, !created))
	return &SessionResult{Session: stored, Resumed: !created}, nil
}

func (s *sessionService) GetActive(ctx context.Context, userID string, testID *uint) (session *models.TestSession, err error) {
	ctx, op := s.logger.Start(ctx, "get_active_session", userID)
	defer func() {
		var sessionID string
		if session != nil {
			sessionID = session.ID
		}
		op.End(sessionID, err)
	}()

	if userID == "" {
		return nil, ErrUnauthorized
	}

	var candidates []*models.TestSession
	if testID != nil {
		active, err := s.repo.Session().GetActive(ctx, userID, *testID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up active session: %w", err)
		}
		if active != nil {
			candidates = append(candidates, active)
		}
	} else {
		status := models.SessionInProgress
		candidates, err = s.repo.Session().List(ctx, repositories.SessionFilters{UserID: userID, Status: &status})
		if err != nil {
			return nil, fmt.Errorf("failed to list active sessions: %w", err)
		}
	}

	for _, candidate := range candidates {
		test, err := s.testFor(ctx, candidate.TestID)
		if err != nil {
			return nil, err
		}
		live, err := s.settleExpiry(ctx, candidate, test)
		if err != nil {
			return nil, err
		}
		if live.Status == models.SessionInProgress {
			return live, nil
		}
	}
	return nil, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID, userID string) (session *models.TestSession, err error) {
	ctx, op := s.logger.Start(ctx, "get_session", userID)
	defer func() { op.End(sessionID, err) }()

	session, _, err = s.loadOwned(ctx, sessionID, userID)
	return session, err
}

func (s *sessionService) Update(ctx context.Context, sessionID, userID string, req *SessionUpdate) (session *models.TestSession, err error) {
	ctx, op := s.logger.Start(ctx, "update_session", userID)
	defer func() { op.End(sessionID, err) }()

	if req == nil {
		req = &SessionUpdate{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, _, err = s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, ErrSessionNotActive
	}

	previous := session.Status
	if err := s.applyUpdate(session, req); err != nil {
		return nil, err
	}
	if err := s.repo.Session().Update(ctx, session); err != nil {
		return nil, mapWriteError(err, "update session")
	}

	if previous != session.Status {
		s.recordTransition(ctx, session)
	}
	return session, nil
}

// ===== SUBMISSION =====

func (s *sessionService) SubmitAnswers(ctx context.Context, sessionID, userID string, req *SubmitAnswersRequest) (summary *SubmissionSummary, err error) {
	ctx, op := s.logger.Start(ctx, "submit_answers", userID)
	defer func() { op.End(sessionID, err) }()

	if req == nil {
		req = &SubmitAnswersRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, test, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return nil, ErrSessionAlreadySubmitted
	}
	op.SetAttributes(attribute.Int64("test.id", int64(session.TestID)), attribute.Int("answers.count", len(req.Answers)))

	questions, err := s.content.GetQuestions(ctx, session.TestID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	answers, err := s.gradeAnswers(ctx, session, byID, req.Answers)
	if err != nil {
		return nil, err
	}

	correct, answered := 0, 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
		if a.IsAnswered {
			answered++
		}
	}

	total := req.TotalQuestions
	if total == 0 {
		total = test.QuestionCount()
	}
	if total == 0 {
		total = len(questions)
	}
	score := percentage(correct, total)

	wasInProgress := session.Status == models.SessionInProgress
	update := req.Session
	if update == nil {
		update = &SessionUpdate{}
	} else if !wasInProgress {
		// An expired session keeps its terminal status and end time.
		trimmed := *update
		trimmed.Status, trimmed.EndTime = nil, nil
		update = &trimmed
	}
	if err := s.applyUpdate(session, update); err != nil {
		return nil, err
	}
	if update.Score == nil {
		session.Score = score
	}
	submittedAt := s.clock.Now()
	session.SubmittedAt = &submittedAt
	if session.Status == models.SessionInProgress {
		session.Status = models.SessionCompleted
		if session.EndTime == nil {
			now := s.clock.Now()
			session.EndTime = &now
		}
	}

	if err := s.repo.Session().ReplaceAnswers(ctx, session, answers); err != nil {
		return nil, mapWriteError(err, "store submission")
	}

	if wasInProgress {
		s.recordTransition(ctx, session)
	}
	summary = &SubmissionSummary{
		SessionID:      session.ID,
		Status:         session.Status,
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: total,
		AnsweredCount:  answered,
		SkippedCount:   max(total-answered, 0),
	}
	s.publish(ctx, events.NewSessionSubmittedEvent(events.SessionSubmittedEvent{
		SessionID:      session.ID,
		TestID:         session.TestID,
		UserID:         userID,
		Status:         string(session.Status),
		Score:          session.Score,
		CorrectCount:   correct,
		AnsweredCount:  answered,
		TotalQuestions: total,
		SubmittedAt:    s.clock.Now(),
	}))
	return summary, nil
}

// gradeAnswers scores each submission against the test's questions. Later entries for the
// same question replace earlier ones.
func (s *sessionService) gradeAnswers(ctx context.Context, session *models.TestSession, questions map[uint]*models.Question, submissions []AnswerSubmission) ([]*models.UserAnswer, error) {
	answers := make([]*models.UserAnswer, 0, len(submissions))
	position := make(map[uint]int, len(submissions))
	var invalid ValidationErrors

	for i, sub := range submissions {
		q, ok := questions[sub.QuestionID]
		if !ok {
			s.logger.Logger().WarnContext(ctx, "Dropping answer for question outside the test",
				"session_id", session.ID, "test_id", session.TestID, "question_id", sub.QuestionID)
			continue
		}
		if verr := s.validator.Response().ValidateResponse(fmt.Sprintf("answers[%d].response", i), q.Type, sub.Response); verr != nil {
			invalid = append(invalid, *verr)
			continue
		}

		result := s.scorer.Score(ctx, q, sub.Response)
		responseJSON, err := json.Marshal(sub.Response)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response for question %d: %w", q.ID, err)
		}

		answered := !sub.Response.IsEmpty()
		answer := &models.UserAnswer{
			SessionID:  session.ID,
			QuestionID: q.ID,
			TimeSpent:  sub.TimeSpent,
			IsCorrect:  answered && result.IsCorrect,
			IsAnswered: answered,
			Response:   datatypes.JSON(responseJSON),
		}
		if q.Type.IsChoice() {
			answer.SelectedAnswerIDs = append([]uint(nil), sub.Response.SelectedAnswerIDs...)
		}

		if idx, seen := position[q.ID]; seen {
			answers[idx] = answer
			continue
		}
		position[q.ID] = len(answers)
		answers = append(answers, answer)
	}

	if len(invalid) > 0 {
		return nil, invalid
	}
	return answers, nil
}

// ===== CONTENT =====

func (s *sessionService) GetSessionContent(ctx context.Context, sessionID, userID string) (content *SessionContent, err error) {
	ctx, op := s.logger.Start(ctx, "get_session_content", userID)
	defer func() { op.End(sessionID, err) }()

	session, test, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionInProgress {
		return nil, ErrSessionNotActive
	}

	questions, err := s.content.GetQuestions(ctx, session.TestID)
	if err != nil {
		return nil, err
	}

	content = &SessionContent{
		Session:   session,
		TestTitle: test.Title,
		TimeLimit: test.TimeLimit,
		Questions: make([]models.PublicQuestion, 0, len(questions)),
	}
	if limit := test.TimeLimitDuration(); limit > 0 {
		remaining := int((limit - s.clock.Now().Sub(session.StartTime)) / time.Second)
		content.RemainingSeconds = &remaining
	}
	for _, q := range questions {
		content.Questions = append(content.Questions, q.PublicView())
	}
	return content, nil
}

// ===== HELPERS =====

// loadOwned reads a session for its owner and settles expiry. A foreign session reads as not found.
func (s *sessionService) loadOwned(ctx context.Context, sessionID, userID string) (*models.TestSession, *models.Test, error) {
	if userID == "" {
		return nil, nil, ErrUnauthorized
	}

	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != userID {
		return nil, nil, NewPermissionError(userID, sessionID, "session", "access", "not the owner")
	}

	test, err := s.testFor(ctx, session.TestID)
	if err != nil {
		return nil, nil, err
	}
	session, err = s.settleExpiry(ctx, session, test)
	if err != nil {
		return nil, nil, err
	}
	return session, test, nil
}

// testFor loads the session's test. A test removed after the session started reads as untimed.
func (s *sessionService) testFor(ctx context.Context, testID uint) (*models.Test, error) {
	test, err := s.content.GetTest(ctx, testID)
	if errors.Is(err, ErrTestNotFound) {
		s.logger.Logger().WarnContext(ctx, "Session references a missing test", "test_id", testID)
		return &models.Test{ID: testID}, nil
	}
	return test, err
}

// settleExpiry flips an in_progress session past its time limit to expired and returns the stored state.
func (s *sessionService) settleExpiry(ctx context.Context, session *models.TestSession, test *models.Test) (*models.TestSession, error) {
	limit := test.TimeLimitDuration()
	if session.Status != models.SessionInProgress || !session.IsExpiredAt(limit, s.clock.Now()) {
		return session, nil
	}

	deadline := session.StartTime.Add(limit)
	flipped, err := s.repo.Session().Expire(ctx, session.ID, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to expire session: %w", err)
	}
	if flipped {
		s.logger.Logger().InfoContext(ctx, "Session expired on read",
			"session_id", session.ID, "user_id", session.UserID, "test_id", session.TestID)
		monitoring.SessionTransitions.WithLabelValues("expired").Inc()
		s.publish(ctx, events.NewSessionExpiredEvent(session.ID, session.TestID, session.UserID, deadline))
	}

	current, err := s.repo.Session().GetByID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}
	return current, nil
}

// applyUpdate copies the set fields of req onto session.
func (s *sessionService) applyUpdate(session *models.TestSession, req *SessionUpdate) error {
	if req.Status != nil && *req.Status != session.Status {
		if session.Status != models.SessionInProgress {
			return ErrInvalidTransition
		}
		session.Status = *req.Status
	}
	if req.Score != nil {
		session.Score = *req.Score
	}
	if req.TimeSpent != nil {
		session.TimeSpent = *req.TimeSpent
	}
	if req.EndTime != nil {
		end := *req.EndTime
		session.EndTime = &end
	}
	if req.CurrentQuestionIndex != nil {
		session.CurrentQuestionIndex = *req.CurrentQuestionIndex
	}
	if len(req.Progress) > 0 {
		if !json.Valid(req.Progress) {
			return NewValidationError("progress", "must be valid JSON", nil)
		}
		session.Progress = datatypes.JSON(append([]byte(nil), req.Progress...))
	}

	if session.Status.IsTerminal() && session.EndTime == nil {
		now := s.clock.Now()
		session.EndTime = &now
	}
	return nil
}

func (s *sessionService) recordTransition(ctx context.Context, session *models.TestSession) {
	monitoring.SessionTransitions.WithLabelValues(string(session.Status)).Inc()
	if session.Status == models.SessionExpired {
		s.publish(ctx, events.NewSessionExpiredEvent(session.ID, session.TestID, session.UserID, *session.EndTime))
	}
}

// publish is best effort; a broker outage must not fail the attempt.
func (s *sessionService) publish(ctx context.Context, event *events.SessionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Logger().WarnContext(ctx, "Failed to publish session event",
			"event_type", event.Type, "error", err)
	}
}

func mapWriteError(err error, action string) error {
	if errors.Is(err, repositories.ErrVersionConflict) {
		return ErrConcurrentModification
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// percentage is round(part / whole * 100), clamped to 0..100.
func percentage(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) / float64(whole) * 100))
	return min(max(p, 0), 100)
}

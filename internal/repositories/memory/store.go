package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
)

// Store is an in-process implementation of repositories.Repository.
// A single mutex makes every conditional write atomic, mirroring the constraints of the SQL store.
type Store struct {
	mu        sync.RWMutex
	tests     map[uint]*models.Test
	questions map[uint]*models.Question
	sessions  map[string]*models.TestSession
	answers   map[string][]*models.UserAnswer
	purchases []*models.PurchaseRecord
	profiles  map[string]*models.Profile
}

func NewStore() *Store {
	return &Store{
		tests:     make(map[uint]*models.Test),
		questions: make(map[uint]*models.Question),
		sessions:  make(map[string]*models.TestSession),
		answers:   make(map[string][]*models.UserAnswer),
		profiles:  make(map[string]*models.Profile),
	}
}

func (s *Store) Test() repositories.TestRepository             { return testRepo{s} }
func (s *Store) Question() repositories.QuestionRepository     { return questionRepo{s} }
func (s *Store) Session() repositories.SessionRepository       { return sessionRepo{s} }
func (s *Store) UserAnswer() repositories.UserAnswerRepository { return userAnswerRepo{s} }
func (s *Store) Purchase() repositories.PurchaseRepository     { return purchaseRepo{s} }
func (s *Store) Profile() repositories.ProfileRepository       { return profileRepo{s} }

// ===== SEEDING =====

func (s *Store) PutTest(t *models.Test) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	cp.Questions = append([]models.TestQuestion(nil), t.Questions...)
	sort.SliceStable(cp.Questions, func(i, j int) bool { return cp.Questions[i].Position < cp.Questions[j].Position })
	s.tests[t.ID] = &cp
}

func (s *Store) PutQuestion(q *models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	s.questions[q.ID] = &cp
}

func (s *Store) PutPurchase(p *models.PurchaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.purchases = append(s.purchases, &cp)
}

// SetPurchaseStatus changes the status of every purchase of testID by userID.
func (s *Store) SetPurchaseStatus(userID string, testID uint, status models.PurchaseStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.UserID == userID && p.TestID == testID {
			p.Status = status
		}
	}
}

func (s *Store) PutProfile(p *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.UserID] = &cp
}

// PutSession stores a session as-is, bypassing the active-session check. Meant for fixtures.
func (s *Store) PutSession(session *models.TestSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
}

// CountSessions counts stored sessions matching the given pair and status.
func (s *Store) CountSessions(userID string, testID uint, status models.SessionStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, session := range s.sessions {
		if session.UserID == userID && session.TestID == testID && session.Status == status {
			n++
		}
	}
	return n
}

// ===== TESTS & QUESTIONS =====

type testRepo struct{ s *Store }

func (r testRepo) GetByID(_ context.Context, id uint) (*models.Test, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyTest(t), nil
}

func (r testRepo) GetByIDs(_ context.Context, ids []uint) ([]*models.Test, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.Test, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if t, ok := r.s.tests[id]; ok {
			out = append(out, copyTest(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type questionRepo struct{ s *Store }

func (r questionRepo) GetByTest(_ context.Context, testID uint) ([]*models.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tests[testID]
	if !ok {
		return []*models.Question{}, nil
	}
	out := make([]*models.Question, 0, len(t.Questions))
	for _, tq := range t.Questions {
		if q, ok := r.s.questions[tq.QuestionID]; ok {
			cp := *q
			cp.Answers = nil
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r questionRepo) GetAnswers(_ context.Context, questions []*models.Question) (map[uint]models.AnswerPayload, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[uint]models.AnswerPayload, len(questions))
	for _, q := range questions {
		stored, ok := r.s.questions[q.ID]
		if !ok || stored.Answers == nil || stored.Answers.Len() == 0 {
			continue
		}
		out[q.ID] = stored.Answers
	}
	return out, nil
}

// ===== SESSIONS =====

type sessionRepo struct{ s *Store }

func (r sessionRepo) GetByID(_ context.Context, id string) (*models.TestSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copySession(session), nil
}

func (r sessionRepo) GetActive(_ context.Context, userID string, testID uint) (*models.TestSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if active := r.s.activeLocked(userID, testID); active != nil {
		return copySession(active), nil
	}
	return nil, nil
}

func (r sessionRepo) List(_ context.Context, filters repositories.SessionFilters) ([]*models.TestSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.TestSession
	for _, session := range r.s.sessions {
		if session.UserID != filters.UserID {
			continue
		}
		if filters.TestID != nil && session.TestID != *filters.TestID {
			continue
		}
		if filters.Status != nil && session.Status != *filters.Status {
			continue
		}
		out = append(out, copySession(session))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r sessionRepo) CreateIfNoActive(_ context.Context, session *models.TestSession) (*models.TestSession, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if active := r.s.activeLocked(session.UserID, session.TestID); active != nil {
		return copySession(active), false, nil
	}
	now := time.Now()
	session.CreatedAt, session.UpdatedAt = now, now
	r.s.sessions[session.ID] = copySession(session)
	return copySession(session), true, nil
}

func (r sessionRepo) Update(_ context.Context, session *models.TestSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.updateLocked(session)
}

func (r sessionRepo) Expire(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.sessions[id]
	if !ok || stored.Status != models.SessionInProgress {
		return false, nil
	}
	end := at
	stored.Status = models.SessionExpired
	stored.EndTime = &end
	stored.Version++
	stored.UpdatedAt = time.Now()
	return true, nil
}

func (r sessionRepo) ReplaceAnswers(_ context.Context, session *models.TestSession, answers []*models.UserAnswer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.updateLocked(session); err != nil {
		return err
	}
	replaced := make([]*models.UserAnswer, 0, len(answers))
	for _, a := range answers {
		cp := *a
		cp.CreatedAt = time.Now()
		replaced = append(replaced, &cp)
	}
	r.s.answers[session.ID] = replaced
	return nil
}

func (s *Store) activeLocked(userID string, testID uint) *models.TestSession {
	for _, session := range s.sessions {
		if session.UserID == userID && session.TestID == testID && session.Status == models.SessionInProgress {
			return session
		}
	}
	return nil
}

func (s *Store) updateLocked(session *models.TestSession) error {
	stored, ok := s.sessions[session.ID]
	if !ok || stored.Version != session.Version {
		return repositories.ErrVersionConflict
	}
	session.Version++
	session.UpdatedAt = time.Now()
	s.sessions[session.ID] = copySession(session)
	return nil
}

type userAnswerRepo struct{ s *Store }

func (r userAnswerRepo) GetBySession(_ context.Context, sessionID string) ([]*models.UserAnswer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyAnswers(r.s.answers[sessionID]), nil
}

func (r userAnswerRepo) GetBySessions(_ context.Context, sessionIDs []string) (map[string][]*models.UserAnswer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string][]*models.UserAnswer, len(sessionIDs))
	for _, id := range sessionIDs {
		if answers, ok := r.s.answers[id]; ok {
			out[id] = copyAnswers(answers)
		}
	}
	return out, nil
}

// ===== PURCHASES & PROFILES =====

type purchaseRepo struct{ s *Store }

func (r purchaseRepo) HasActivePurchase(_ context.Context, userID string, testID uint) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.purchases {
		if p.UserID == userID && p.TestID == testID && p.Status == models.PurchaseActive {
			return true, nil
		}
	}
	return false, nil
}

func (r purchaseRepo) ActivePurchasedTestIDs(_ context.Context, userID string, testIDs []uint) (map[uint]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wanted := make(map[uint]struct{}, len(testIDs))
	for _, id := range testIDs {
		wanted[id] = struct{}{}
	}
	owned := make(map[uint]bool)
	for _, p := range r.s.purchases {
		if _, ok := wanted[p.TestID]; ok && p.UserID == userID && p.Status == models.PurchaseActive {
			owned[p.TestID] = true
		}
	}
	return owned, nil
}

type profileRepo struct{ s *Store }

func (r profileRepo) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ===== COPIES =====

func copyTest(t *models.Test) *models.Test {
	cp := *t
	cp.Questions = append([]models.TestQuestion(nil), t.Questions...)
	cp.CategoryIDs = append([]uint(nil), t.CategoryIDs...)
	return &cp
}

func copySession(session *models.TestSession) *models.TestSession {
	cp := *session
	if session.EndTime != nil {
		end := *session.EndTime
		cp.EndTime = &end
	}
	if session.SubmittedAt != nil {
		submitted := *session.SubmittedAt
		cp.SubmittedAt = &submitted
	}
	cp.Progress = append([]byte(nil), session.Progress...)
	return &cp
}

func copyAnswers(answers []*models.UserAnswer) []*models.UserAnswer {
	out := make([]*models.UserAnswer, 0, len(answers))
	for _, a := range answers {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

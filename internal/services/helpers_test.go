package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/events"
	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ===== FAKE CLOCK =====

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ===== ENVIRONMENT =====

type testEnv struct {
	store     *memory.Store
	clock     *fakeClock
	publisher *events.MockEventPublisher
	manager   ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRepo(t, nil)
}

// newTestEnvWithRepo lets a test wrap the memory store, e.g. to inject write failures.
func newTestEnvWithRepo(t *testing.T, wrap func(repositories.Repository) repositories.Repository) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock()
	logger := testLogger()
	publisher := events.NewMockEventPublisher(logger)

	var repo repositories.Repository = store
	if wrap != nil {
		repo = wrap(store)
	}

	return &testEnv{
		store:     store,
		clock:     clock,
		publisher: publisher,
		manager: NewServiceManager(Dependencies{
			Repo:        repo,
			CacheConfig: DefaultContentCacheConfig(),
			Publisher:   publisher,
			Logger:      logger,
			Clock:       clock,
		}),
	}
}

// ===== FIXTURES =====

// Choice question ids are testID*100+i; answer testID*1000+i*10+1 is correct, +2 is wrong.
func questionID(testID uint, i int) uint { return testID*100 + uint(i) }
func correctAnswer(testID uint, i int) uint {
	return testID*1000 + uint(i)*10 + 1
}
func wrongAnswer(testID uint, i int) uint {
	return testID*1000 + uint(i)*10 + 2
}

type testOption func(*models.Test)

func withPrice(price string) testOption {
	return func(t *models.Test) { t.Price = decimal.RequireFromString(price) }
}

func withTimeLimit(seconds int) testOption {
	return func(t *models.Test) { t.TimeLimit = seconds }
}

func archived() testOption {
	return func(t *models.Test) { t.IsArchived = true }
}

// seedChoiceTest stores a test with n single-choice questions.
func seedChoiceTest(store *memory.Store, testID uint, n int, opts ...testOption) *models.Test {
	test := &models.Test{
		ID:       testID,
		Title:    "Test",
		Currency: "USD",
		IsActive: true,
	}
	for i := 1; i <= n; i++ {
		qid := questionID(testID, i)
		test.Questions = append(test.Questions, models.TestQuestion{TestID: testID, QuestionID: qid, Position: i})
		store.PutQuestion(&models.Question{
			ID:     qid,
			Text:   "Question",
			Type:   models.SingleChoice,
			Points: 1,
			Answers: models.ChoicePayload{
				{ID: correctAnswer(testID, i), QuestionID: qid, Text: "right", IsCorrect: true, Position: 1},
				{ID: wrongAnswer(testID, i), QuestionID: qid, Text: "wrong", Position: 2},
			},
		})
	}
	for _, o := range opts {
		o(test)
	}
	store.PutTest(test)
	return test
}

func answer(testID uint, i int, correct bool) AnswerSubmission {
	id := wrongAnswer(testID, i)
	if correct {
		id = correctAnswer(testID, i)
	}
	return AnswerSubmission{
		QuestionID: questionID(testID, i),
		TimeSpent:  10,
		Response:   models.SubmittedResponse{SelectedAnswerIDs: []uint{id}},
	}
}

func intPtr(v int) *int { return &v }

func statusPtr(s models.SessionStatus) *models.SessionStatus { return &s }

// ===== MOCKS =====

type mockPurchaseRepository struct {
	mock.Mock
}

func (m *mockPurchaseRepository) HasActivePurchase(ctx context.Context, userID string, testID uint) (bool, error) {
	args := m.Called(ctx, userID, testID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPurchaseRepository) ActivePurchasedTestIDs(ctx context.Context, userID string, testIDs []uint) (map[uint]bool, error) {
	args := m.Called(ctx, userID, testIDs)
	owned, _ := args.Get(0).(map[uint]bool)
	return owned, args.Error(1)
}

type mockAdminChecker struct {
	mock.Mock
}

func (m *mockAdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// ===== REPOSITORY WRAPPERS =====

type wrappedRepo struct {
	repositories.Repository
	tests     repositories.TestRepository
	questions repositories.QuestionRepository
	sessions  repositories.SessionRepository
}

func (r wrappedRepo) Test() repositories.TestRepository {
	if r.tests != nil {
		return r.tests
	}
	return r.Repository.Test()
}

func (r wrappedRepo) Question() repositories.QuestionRepository {
	if r.questions != nil {
		return r.questions
	}
	return r.Repository.Question()
}

func (r wrappedRepo) Session() repositories.SessionRepository {
	if r.sessions != nil {
		return r.sessions
	}
	return r.Repository.Session()
}

// countingTests counts GetByID calls and fails the first failFirst of them.
type countingTests struct {
	repositories.TestRepository
	calls     atomic.Int32
	failFirst int32
	err       error
}

func (c *countingTests) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	n := c.calls.Add(1)
	if n <= c.failFirst {
		return nil, c.err
	}
	return c.TestRepository.GetByID(ctx, id)
}

type countingQuestions struct {
	repositories.QuestionRepository
	byTest  atomic.Int32
	answers atomic.Int32
	lastLen atomic.Int32
}

func (c *countingQuestions) GetByTest(ctx context.Context, testID uint) ([]*models.Question, error) {
	c.byTest.Add(1)
	return c.QuestionRepository.GetByTest(ctx, testID)
}

func (c *countingQuestions) GetAnswers(ctx context.Context, questions []*models.Question) (map[uint]models.AnswerPayload, error) {
	c.answers.Add(1)
	c.lastLen.Store(int32(len(questions)))
	return c.QuestionRepository.GetAnswers(ctx, questions)
}

// conflictingSessions simulates a concurrent writer winning every submission.
type conflictingSessions struct {
	repositories.SessionRepository
}

func (conflictingSessions) ReplaceAnswers(context.Context, *models.TestSession, []*models.UserAnswer) error {
	return repositories.ErrVersionConflict
}

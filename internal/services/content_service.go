package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/cache"
	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/monitoring"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"golang.org/x/sync/singleflight"
)

// ContentService assembles read-only test content for the session and access layers.
// Every method returns the same result with the caches disabled.
type ContentService interface {
	GetTest(ctx context.Context, testID uint) (*models.Test, error)
	GetTests(ctx context.Context, testIDs []uint) ([]*models.Test, error)
	// GetQuestions returns the test's questions in position order with their answer payloads attached.
	GetQuestions(ctx context.Context, testID uint) ([]*models.Question, error)

	InvalidateTest(testID uint)
	InvalidateAnswers(questionID uint)
}

// ContentCacheConfig sizes the per-shape caches
type ContentCacheConfig struct {
	TestCapacity     int
	QuestionCapacity int
	AnswerCapacity   int
	BatchCapacity    int
	TTL              time.Duration
	RemoteTTL        time.Duration
	Clock            cache.Clock
}

// DefaultContentCacheConfig returns the stock capacities: 20 tests, 50 question lists, 100 answer lists, 20 batches.
func DefaultContentCacheConfig() ContentCacheConfig {
	return ContentCacheConfig{
		TestCapacity:     20,
		QuestionCapacity: 50,
		AnswerCapacity:   100,
		BatchCapacity:    20,
		TTL:              5 * time.Minute,
		RemoteTTL:        15 * time.Minute,
	}
}

type contentService struct {
	repo      repositories.Repository
	tests     *cache.LRU[*models.Test]
	questions *cache.LRU[[]*models.Question]
	answers   *cache.LRU[models.AnswerPayload]
	batches   *cache.LRU[[]*models.Test]
	remote    cache.CacheService
	remoteTTL time.Duration
	group     singleflight.Group
	logger    *slog.Logger
}

// NewContentService builds the assembly layer. remote may be nil to run with the process-local tier only.
func NewContentService(repo repositories.Repository, remote cache.CacheService, cfg ContentCacheConfig, logger *slog.Logger) ContentService {
	if remote == nil {
		remote = cache.NewNoopCache()
	}
	s := &contentService{
		repo:      repo,
		tests:     cache.NewLRU[*models.Test](cache.Config{Name: "tests", Capacity: cfg.TestCapacity, TTL: cfg.TTL, Clock: cfg.Clock}),
		questions: cache.NewLRU[[]*models.Question](cache.Config{Name: "questions", Capacity: cfg.QuestionCapacity, TTL: cfg.TTL, Clock: cfg.Clock}),
		answers:   cache.NewLRU[models.AnswerPayload](cache.Config{Name: "answers", Capacity: cfg.AnswerCapacity, TTL: cfg.TTL, Clock: cfg.Clock}),
		batches:   cache.NewLRU[[]*models.Test](cache.Config{Name: "test_batches", Capacity: cfg.BatchCapacity, TTL: cfg.TTL, Clock: cfg.Clock}),
		remote:    remote,
		remoteTTL: cfg.RemoteTTL,
		logger:    logger,
	}
	reportCapacity(s.tests, s.questions, s.answers, s.batches)
	return s
}

type sizedCache interface {
	Name() string
	Capacity() int
}

func reportCapacity(caches ...sizedCache) {
	for _, c := range caches {
		monitoring.CacheCapacity.WithLabelValues(c.Name()).Set(float64(c.Capacity()))
	}
}

// ===== TESTS =====

func (s *contentService) GetTest(ctx context.Context, testID uint) (*models.Test, error) {
	key := cache.TestKey(testID)
	if test, ok := s.tests.Get(key); ok {
		return cloneTest(test), nil
	}

	var remote models.Test
	switch err := s.remote.Get(ctx, key, &remote); {
	case err == nil:
		s.tests.Set(key, &remote)
		return cloneTest(&remote), nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.WarnContext(ctx, "Remote cache read failed, falling back to store", "key", key, "error", err)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return retryOnce(ctx, s.logger, "get_test", func() (*models.Test, error) {
			return s.repo.Test().GetByID(ctx, testID)
		})
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test %d: %w", testID, err)
	}

	test := v.(*models.Test)
	s.tests.Set(key, test)
	if err := s.remote.Set(ctx, key, test, s.remoteTTL); err != nil {
		s.logger.WarnContext(ctx, "Remote cache write failed", "key", key, "error", err)
	}
	return cloneTest(test), nil
}

// GetTests returns the tests that exist among testIDs, ordered by id.
func (s *contentService) GetTests(ctx context.Context, testIDs []uint) ([]*models.Test, error) {
	if len(testIDs) == 0 {
		return []*models.Test{}, nil
	}

	key := cache.BatchKey("tests", testIDs)
	if tests, ok := s.batches.Get(key); ok {
		return cloneTests(tests), nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return retryOnce(ctx, s.logger, "get_tests", func() ([]*models.Test, error) {
			return s.repo.Test().GetByIDs(ctx, testIDs)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}

	tests := v.([]*models.Test)
	s.batches.Set(key, tests)
	for _, test := range tests {
		s.tests.Set(cache.TestKey(test.ID), test)
	}
	return cloneTests(tests), nil
}

// ===== QUESTIONS =====

func (s *contentService) GetQuestions(ctx context.Context, testID uint) ([]*models.Question, error) {
	key := cache.QuestionsKey(testID)
	questions, ok := s.questions.Get(key)
	if !ok {
		v, err, _ := s.group.Do(key, func() (interface{}, error) {
			return retryOnce(ctx, s.logger, "get_questions", func() ([]*models.Question, error) {
				return s.repo.Question().GetByTest(ctx, testID)
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load questions for test %d: %w", testID, err)
		}
		questions = v.([]*models.Question)
		s.questions.Set(key, questions)
	}

	payloads := make(map[uint]models.AnswerPayload, len(questions))
	var misses []*models.Question
	for _, q := range questions {
		if payload, ok := s.answers.Get(cache.AnswersKey(q.ID)); ok {
			payloads[q.ID] = payload
			continue
		}
		misses = append(misses, q)
	}

	if len(misses) > 0 {
		loaded, err := retryOnce(ctx, s.logger, "get_answers", func() (map[uint]models.AnswerPayload, error) {
			return s.repo.Question().GetAnswers(ctx, misses)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load answers for test %d: %w", testID, err)
		}
		for id, payload := range loaded {
			payloads[id] = payload
			s.answers.Set(cache.AnswersKey(id), payload)
		}
	}

	out := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		cp := *q
		cp.Answers = payloads[q.ID]
		out = append(out, &cp)
	}
	return out, nil
}

// ===== INVALIDATION =====

// InvalidateTest drops the test payload and its question list. Batch entries are purged
// because their keys cannot be matched by a single id.
func (s *contentService) InvalidateTest(testID uint) {
	s.tests.Delete(cache.TestKey(testID))
	s.questions.Delete(cache.QuestionsKey(testID))
	s.batches.Purge()

	if err := s.remote.Delete(context.Background(), cache.TestKey(testID)); err != nil {
		s.logger.Warn("Remote cache delete failed", "test_id", testID, "error", err)
	}
}

func (s *contentService) InvalidateAnswers(questionID uint) {
	s.answers.Delete(cache.AnswersKey(questionID))
}

// ===== HELPERS =====

// retryOnce repeats fn a single time after a transient failure. Not-found is final.
func retryOnce[T any](ctx context.Context, logger *slog.Logger, operation string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || repositories.IsNotFoundError(err) || ctx.Err() != nil {
		return v, err
	}
	logger.WarnContext(ctx, "Store read failed, retrying once", "operation", operation, "error", err)
	return fn()
}

func cloneTest(t *models.Test) *models.Test {
	cp := *t
	cp.Questions = append([]models.TestQuestion(nil), t.Questions...)
	cp.CategoryIDs = append([]uint(nil), t.CategoryIDs...)
	return &cp
}

func cloneTests(tests []*models.Test) []*models.Test {
	out := make([]*models.Test, 0, len(tests))
	for _, t := range tests {
		out = append(out, cloneTest(t))
	}
	return out
}

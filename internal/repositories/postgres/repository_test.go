package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The gorm repositories stick to portable SQL, so they are exercised against in-memory SQLite.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedTest(t *testing.T, db *gorm.DB) *models.Test {
	t.Helper()
	test := &models.Test{
		ID:        1,
		Title:     "Go basics",
		TimeLimit: 600,
		Price:     decimal.NewFromFloat(9.99),
		Currency:  "USD",
		IsActive:  true,
	}
	require.NoError(t, db.Omit("Questions").Create(test).Error)

	questions := []models.Question{
		{ID: 10, Text: "Pick the keyword", Type: models.SingleChoice, Points: 1},
		{ID: 11, Text: "Order the steps", Type: models.Sequence, Points: 1},
		{ID: 12, Text: "Fill in", Type: models.DropdownFill, Points: 1},
	}
	require.NoError(t, db.Create(&questions).Error)
	require.NoError(t, db.Create(&[]models.TestQuestion{
		{TestID: 1, QuestionID: 11, Position: 2},
		{TestID: 1, QuestionID: 10, Position: 1},
		{TestID: 1, QuestionID: 12, Position: 3},
	}).Error)

	require.NoError(t, db.Create(&[]models.ChoiceAnswer{
		{ID: 100, QuestionID: 10, Text: "func", IsCorrect: true, Position: 2},
		{ID: 101, QuestionID: 10, Text: "def", Position: 1},
	}).Error)
	require.NoError(t, db.Create(&[]models.SequenceItem{
		{ID: 200, QuestionID: 11, Text: "write", CorrectPosition: 1},
		{ID: 201, QuestionID: 11, Text: "build", CorrectPosition: 2},
	}).Error)
	require.NoError(t, db.Create(&models.DropdownItem{
		ID: 300, QuestionID: 12, Statement: "Go is ___ typed", Options: []string{"statically", "dynamically"},
		CorrectOption: "statically", Position: 1,
	}).Error)

	return test
}

func newSession(userID string, testID uint) *models.TestSession {
	return &models.TestSession{
		ID:        uuid.NewString(),
		TestID:    testID,
		UserID:    userID,
		Status:    models.SessionInProgress,
		StartTime: time.Now().UTC(),
		Version:   1,
	}
}

func TestTestPostgreSQL_GetByID(t *testing.T) {
	db := setupDB(t)
	seedTest(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	test, err := repo.Test().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Go basics", test.Title)
	assert.True(t, test.Price.Equal(decimal.NewFromFloat(9.99)))
	require.Len(t, test.Questions, 3)
	assert.Equal(t, uint(10), test.Questions[0].QuestionID)
	assert.Equal(t, uint(11), test.Questions[1].QuestionID)

	_, err = repo.Test().GetByID(ctx, 999)
	assert.True(t, repositories.IsNotFoundError(err))

	tests, err := repo.Test().GetByIDs(ctx, []uint{1, 999})
	require.NoError(t, err)
	assert.Len(t, tests, 1)
}

func TestTestPostgreSQL_StoresInactiveFlag(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Omit("Questions").Create(&models.Test{ID: 2, Title: "Draft", Currency: "USD", IsActive: false}).Error)

	test, err := NewRepository(db).Test().GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, test.IsActive)
	assert.False(t, test.IsOffered())
}

func TestQuestionPostgreSQL_GetByTestAndAnswers(t *testing.T) {
	db := setupDB(t)
	seedTest(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	questions, err := repo.Question().GetByTest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, []uint{10, 11, 12}, []uint{questions[0].ID, questions[1].ID, questions[2].ID})

	answers, err := repo.Question().GetAnswers(ctx, questions)
	require.NoError(t, err)

	choices, ok := answers[10].(models.ChoicePayload)
	require.True(t, ok)
	require.Len(t, choices, 2)
	assert.Equal(t, uint(101), choices[0].ID, "ordered by position")

	seq, ok := answers[11].(models.SequencePayload)
	require.True(t, ok)
	assert.Len(t, seq, 2)

	dd, ok := answers[12].(models.DropdownPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"statically", "dynamically"}, []string(dd[0].Options))
}

func TestSessionPostgreSQL_CreateIfNoActive(t *testing.T) {
	db := setupDB(t)
	seedTest(t, db)
	repo := NewRepository(db).Session()
	ctx := context.Background()

	first, created, err := repo.CreateIfNoActive(ctx, newSession("user-1", 1))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.CreateIfNoActive(ctx, newSession("user-1", 1))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	other, created, err := repo.CreateIfNoActive(ctx, newSession("user-2", 1))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)

	// Once the first session is terminal a new one may start.
	expired, err := repo.Expire(ctx, first.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, expired)

	third, created, err := repo.CreateIfNoActive(ctx, newSession("user-1", 1))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)

	var active int64
	require.NoError(t, db.Model(&models.TestSession{}).
		Where("user_id = ? AND test_id = ? AND status = ?", "user-1", 1, models.SessionInProgress).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestSessionPostgreSQL_UpdateVersionCheck(t *testing.T) {
	db := setupDB(t)
	seedTest(t, db)
	repo := NewRepository(db).Session()
	ctx := context.Background()

	session, _, err := repo.CreateIfNoActive(ctx, newSession("user-1", 1))
	require.NoError(t, err)

	stale := *session
	session.CurrentQuestionIndex = 2
	require.NoError(t, repo.Update(ctx, session))
	assert.Equal(t, 2, session.Version)

	stale.CurrentQuestionIndex = 5
	err = repo.Update(ctx, &stale)
	assert.ErrorIs(t, err, repositories.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentQuestionIndex)

	again, err := repo.Expire(ctx, session.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, again)
	again, err = repo.Expire(ctx, session.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, again, "expire only applies to in_progress sessions")
}

func TestSessionPostgreSQL_ReplaceAnswers(t *testing.T) {
	db := setupDB(t)
	seedTest(t, db)
	r := NewRepository(db)
	ctx := context.Background()

	session, _, err := r.Session().CreateIfNoActive(ctx, newSession("user-1", 1))
	require.NoError(t, err)

	session.Score = 50
	require.NoError(t, r.Session().ReplaceAnswers(ctx, session, []*models.UserAnswer{
		{SessionID: session.ID, QuestionID: 10, IsCorrect: true, IsAnswered: true},
		{SessionID: session.ID, QuestionID: 11, IsAnswered: true},
	}))

	session.Score = 100
	session.Status = models.SessionCompleted
	submittedAt := time.Now().UTC().Truncate(time.Second)
	session.SubmittedAt = &submittedAt
	require.NoError(t, r.Session().ReplaceAnswers(ctx, session, []*models.UserAnswer{
		{SessionID: session.ID, QuestionID: 10, IsCorrect: true, IsAnswered: true},
	}))

	answers, err := r.UserAnswer().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1, "resubmission replaces rather than accumulates")
	assert.Equal(t, uint(10), answers[0].QuestionID)

	stored, err := r.Session().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Score)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	require.NotNil(t, stored.SubmittedAt)
	assert.True(t, submittedAt.Equal(*stored.SubmittedAt))

	// A stale writer loses and leaves the stored answers untouched.
	stale := *stored
	stale.Version = 1
	err = r.Session().ReplaceAnswers(ctx, &stale, []*models.UserAnswer{})
	assert.ErrorIs(t, err, repositories.ErrVersionConflict)
	assert.Equal(t, 1, stale.Version)

	answers, err = r.UserAnswer().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 1)

	bySession, err := r.UserAnswer().GetBySessions(ctx, []string{session.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, bySession[session.ID], 1)
	assert.Empty(t, bySession["missing"])
}

func TestSessionPostgreSQL_List(t *testing.T) {
	db := setupDB(t)
	seedTest(t, db)
	repo := NewRepository(db).Session()
	ctx := context.Background()

	old := newSession("user-1", 1)
	old.StartTime = time.Now().Add(-time.Hour).UTC()
	old.Status = models.SessionCompleted
	require.NoError(t, db.Create(old).Error)

	current, _, err := repo.CreateIfNoActive(ctx, newSession("user-1", 1))
	require.NoError(t, err)

	all, err := repo.List(ctx, repositories.SessionFilters{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, current.ID, all[0].ID, "newest first")

	completed := models.SessionCompleted
	done, err := repo.List(ctx, repositories.SessionFilters{UserID: "user-1", Status: &completed})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, old.ID, done[0].ID)
}

func TestPurchasePostgreSQL(t *testing.T) {
	db := setupDB(t)
	r := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]models.PurchaseRecord{
		{UserID: "user-1", TestID: 1, Status: models.PurchaseActive, PurchasedAt: time.Now(), AmountPaid: decimal.NewFromInt(10)},
		{UserID: "user-1", TestID: 2, Status: models.PurchaseRefunded, PurchasedAt: time.Now(), AmountPaid: decimal.NewFromInt(10)},
		{UserID: "user-2", TestID: 3, Status: models.PurchaseActive, PurchasedAt: time.Now(), AmountPaid: decimal.NewFromInt(10)},
	}).Error)

	owned, err := r.Purchase().HasActivePurchase(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = r.Purchase().HasActivePurchase(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.False(t, owned, "refunded purchases do not count")

	many, err := r.Purchase().ActivePurchasedTestIDs(ctx, "user-1", []uint{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{1: true}, many)
}

func TestProfilePostgreSQL(t *testing.T) {
	db := setupDB(t)
	r := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Profile{UserID: "admin-1", IsAdmin: true}).Error)

	p, err := r.Profile().GetByUserID(ctx, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsAdmin)

	p, err = r.Profile().GetByUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
}

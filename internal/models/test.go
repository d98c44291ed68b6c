package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var ErrPaidTestMarkedFree = errors.New("test with a positive price cannot be marked free")

// Test is authored out-of-band and read-only for the engine.
type Test struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Title       string          `json:"title" gorm:"not null;size:200"`
	Description string          `json:"description" gorm:"type:text"`
	TimeLimit   int             `json:"time_limit" gorm:"not null;default:0"` // seconds, 0 = untimed
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null;default:0"`
	Currency    string          `json:"currency" gorm:"size:3;default:USD"`
	IsFree      bool            `json:"is_free" gorm:"default:false"`
	IsActive    bool            `json:"is_active" gorm:"not null;index"`
	IsArchived  bool            `json:"is_archived" gorm:"default:false;index"`

	CategoryIDs datatypes.JSONSlice[uint] `json:"category_ids"`
	Questions   []TestQuestion            `json:"questions" gorm:"foreignKey:TestID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Test) TableName() string {
	return "tests"
}

// TestQuestion places a question at a position inside a test.
type TestQuestion struct {
	TestID     uint `json:"test_id" gorm:"primaryKey"`
	QuestionID uint `json:"question_id" gorm:"primaryKey"`
	Position   int  `json:"position" gorm:"not null;index"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}

// Validate checks the authored constraints of a test.
func (t *Test) Validate() error {
	if t.Price.IsPositive() && t.IsFree {
		return ErrPaidTestMarkedFree
	}
	return nil
}

// IsFreeOfCharge reports whether access needs no purchase.
func (t *Test) IsFreeOfCharge() bool {
	return t.IsFree || !t.Price.IsPositive()
}

// IsOffered reports whether new sessions may be started.
func (t *Test) IsOffered() bool {
	return t.IsActive && !t.IsArchived
}

func (t *Test) TimeLimitDuration() time.Duration {
	return time.Duration(t.TimeLimit) * time.Second
}

// QuestionCount is the scoring denominator for sessions of this test.
func (t *Test) QuestionCount() int {
	return len(t.Questions)
}

func (t *Test) AccessInfo() TestAccessInfo {
	return TestAccessInfo{
		TestID:   t.ID,
		IsFree:   t.IsFree,
		Price:    t.Price,
		Currency: t.Currency,
	}
}

// TestAccessInfo is the projection of a test the access decision needs.
type TestAccessInfo struct {
	TestID   uint            `json:"test_id"`
	IsFree   bool            `json:"is_free"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

func (i TestAccessInfo) IsFreeOfCharge() bool {
	return i.IsFree || !i.Price.IsPositive()
}

package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

var (
	ErrNoAnswerRecords     = errors.New("question has no answer records")
	ErrUnknownQuestionType = errors.New("unrecognized question type")
	ErrPayloadMismatch     = errors.New("answer payload does not match question type")
	ErrNoCorrectChoice     = errors.New("choice question has no correct answer flagged")
)

// Result is the outcome of scoring one response. Scoring is all-or-nothing per question.
type Result struct {
	IsCorrect bool   `json:"is_correct"`
	Points    int    `json:"points"`
	Anomaly   string `json:"anomaly,omitempty"`
}

// Strategy decides correctness for one question variant. An error marks the question as unscorable.
type Strategy interface {
	Correct(payload models.AnswerPayload, response models.SubmittedResponse) (bool, error)
}

type Scorer struct {
	strategies map[models.QuestionType]Strategy
	logger     *slog.Logger
}

type Option func(*Scorer)

// WithStrategy overrides or adds the strategy for a question type.
func WithStrategy(t models.QuestionType, s Strategy) Option {
	return func(sc *Scorer) { sc.strategies[t] = s }
}

func NewScorer(logger *slog.Logger, opts ...Option) *Scorer {
	s := &Scorer{
		strategies: map[models.QuestionType]Strategy{
			models.SingleChoice:   choiceStrategy{},
			models.MultipleChoice: choiceStrategy{},
			models.TrueFalse:      choiceStrategy{},
			models.Matching:       matchingStrategy{},
			models.Sequence:       sequenceStrategy{},
			models.DragDrop:       dragDropStrategy{},
			models.DropdownFill:   dropdownStrategy{},
		},
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score never fails: unscorable questions are logged and score as incorrect.
func (s *Scorer) Score(ctx context.Context, q *models.Question, response models.SubmittedResponse) Result {
	correct, err := s.correct(q, response)
	if err != nil {
		s.logger.WarnContext(ctx, "Data integrity anomaly while scoring, marking incorrect",
			"question_id", q.ID,
			"question_type", q.Type,
			"error", err)
		return Result{Anomaly: err.Error()}
	}
	if !correct {
		return Result{}
	}
	return Result{IsCorrect: true, Points: q.Points}
}

func (s *Scorer) correct(q *models.Question, response models.SubmittedResponse) (bool, error) {
	strategy, ok := s.strategies[q.Type]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownQuestionType, q.Type)
	}
	if q.Answers == nil || q.Answers.Len() == 0 {
		return false, ErrNoAnswerRecords
	}
	if !q.Answers.Supports(q.Type) {
		return false, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, q.Answers, q.Type)
	}
	return strategy.Correct(q.Answers, response)
}

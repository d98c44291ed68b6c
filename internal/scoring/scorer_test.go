package scoring

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func newTestScorer() (*Scorer, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewScorer(logger), buf
}

func choiceQuestion(t models.QuestionType) *models.Question {
	return &models.Question{
		ID:     1,
		Type:   t,
		Points: 2,
		Answers: models.ChoicePayload{
			{ID: 10, Text: "A", IsCorrect: true, Position: 1},
			{ID: 11, Text: "B", IsCorrect: false, Position: 2},
			{ID: 12, Text: "C", IsCorrect: true, Position: 3},
		},
	}
}

func TestScorer_ChoiceTypes(t *testing.T) {
	scorer, _ := newTestScorer()
	ctx := context.Background()

	tests := []struct {
		name     string
		selected []uint
		want     bool
	}{
		{"exact set", []uint{10, 12}, true},
		{"order independent", []uint{12, 10}, true},
		{"duplicates collapse", []uint{10, 12, 12}, true},
		{"partial selection", []uint{10}, false},
		{"extra wrong selection", []uint{10, 11, 12}, false},
		{"empty selection", nil, false},
		{"unknown id", []uint{10, 99}, false},
	}

	for _, qt := range []models.QuestionType{models.SingleChoice, models.MultipleChoice, models.TrueFalse} {
		for _, tt := range tests {
			t.Run(string(qt)+"/"+tt.name, func(t *testing.T) {
				res := scorer.Score(ctx, choiceQuestion(qt), models.SubmittedResponse{SelectedAnswerIDs: tt.selected})
				assert.Equal(t, tt.want, res.IsCorrect)
				if tt.want {
					assert.Equal(t, 2, res.Points)
				} else {
					assert.Zero(t, res.Points)
				}
				assert.Empty(t, res.Anomaly)
			})
		}
	}
}

func TestScorer_Matching(t *testing.T) {
	scorer, _ := newTestScorer()
	q := &models.Question{
		ID:   2,
		Type: models.Matching,
		Answers: models.MatchingPayload{
			{ID: 1, LeftText: "France", RightText: "Paris"},
			{ID: 2, LeftText: "Spain", RightText: "Madrid"},
			{ID: 3, LeftText: "Italy", RightText: "Rome"},
			{ID: 4, LeftText: "Germany", RightText: "Berlin"},
		},
	}
	all := []models.MatchPair{
		{Left: "Germany", Right: "Berlin"},
		{Left: "France", Right: "Paris"},
		{Left: "Italy", Right: "Rome"},
		{Left: "Spain", Right: "Madrid"},
	}

	res := scorer.Score(context.Background(), q, models.SubmittedResponse{Pairs: all})
	assert.True(t, res.IsCorrect)

	// One of four pairs missing: no partial credit.
	res = scorer.Score(context.Background(), q, models.SubmittedResponse{Pairs: all[:3]})
	assert.False(t, res.IsCorrect)

	swapped := []models.MatchPair{
		{Left: "Germany", Right: "Paris"},
		{Left: "France", Right: "Berlin"},
		{Left: "Italy", Right: "Rome"},
		{Left: "Spain", Right: "Madrid"},
	}
	res = scorer.Score(context.Background(), q, models.SubmittedResponse{Pairs: swapped})
	assert.False(t, res.IsCorrect)

	duplicated := []models.MatchPair{all[0], all[0], all[1], all[2]}
	res = scorer.Score(context.Background(), q, models.SubmittedResponse{Pairs: duplicated})
	assert.False(t, res.IsCorrect)
}

func TestScorer_Sequence(t *testing.T) {
	scorer, _ := newTestScorer()
	q := &models.Question{
		ID:   3,
		Type: models.Sequence,
		Answers: models.SequencePayload{
			{ID: 101, Text: "first", CorrectPosition: 1},
			{ID: 102, Text: "second", CorrectPosition: 2},
			{ID: 103, Text: "third", CorrectPosition: 3},
		},
	}

	tests := []struct {
		name  string
		order []uint
		want  bool
	}{
		{"correct order", []uint{101, 102, 103}, true},
		{"first two swapped", []uint{102, 101, 103}, false},
		{"too short", []uint{101, 102}, false},
		{"repeated item", []uint{101, 101, 103}, false},
		{"unknown item", []uint{101, 102, 999}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scorer.Score(context.Background(), q, models.SubmittedResponse{Order: tt.order})
			assert.Equal(t, tt.want, res.IsCorrect)
		})
	}
}

func TestScorer_DragDrop(t *testing.T) {
	scorer, _ := newTestScorer()
	q := &models.Question{
		ID:   4,
		Type: models.DragDrop,
		Answers: models.DragDropPayload{
			{ID: 1, Content: "cat", TargetZone: "mammal"},
			{ID: 2, Content: "eagle", TargetZone: "bird"},
		},
	}

	ok := []models.Placement{{ItemID: 2, Zone: "bird"}, {ItemID: 1, Zone: "mammal"}}
	assert.True(t, scorer.Score(context.Background(), q, models.SubmittedResponse{Placements: ok}).IsCorrect)

	wrongZone := []models.Placement{{ItemID: 1, Zone: "bird"}, {ItemID: 2, Zone: "bird"}}
	assert.False(t, scorer.Score(context.Background(), q, models.SubmittedResponse{Placements: wrongZone}).IsCorrect)

	repeated := []models.Placement{{ItemID: 1, Zone: "mammal"}, {ItemID: 1, Zone: "mammal"}}
	assert.False(t, scorer.Score(context.Background(), q, models.SubmittedResponse{Placements: repeated}).IsCorrect)
}

func TestScorer_Dropdown(t *testing.T) {
	scorer, _ := newTestScorer()
	q := &models.Question{
		ID:   5,
		Type: models.DropdownFill,
		Answers: models.DropdownPayload{
			{ID: 1, Statement: "Go was released in ___", Options: []string{"2007", "2009"}, CorrectOption: "2009"},
			{ID: 2, Statement: "Go's mascot is a ___", Options: []string{"gopher", "crab"}, CorrectOption: "gopher"},
		},
	}

	all := []models.DropdownSelection{{ItemID: 1, Option: "2009"}, {ItemID: 2, Option: "gopher"}}
	assert.True(t, scorer.Score(context.Background(), q, models.SubmittedResponse{Selections: all}).IsCorrect)

	oneWrong := []models.DropdownSelection{{ItemID: 1, Option: "2007"}, {ItemID: 2, Option: "gopher"}}
	assert.False(t, scorer.Score(context.Background(), q, models.SubmittedResponse{Selections: oneWrong}).IsCorrect)

	missing := []models.DropdownSelection{{ItemID: 1, Option: "2009"}}
	assert.False(t, scorer.Score(context.Background(), q, models.SubmittedResponse{Selections: missing}).IsCorrect)
}

func TestScorer_Anomalies(t *testing.T) {
	ctx := context.Background()

	t.Run("no answer records", func(t *testing.T) {
		scorer, logs := newTestScorer()
		q := &models.Question{ID: 6, Type: models.SingleChoice}
		res := scorer.Score(ctx, q, models.SubmittedResponse{SelectedAnswerIDs: []uint{1}})
		assert.False(t, res.IsCorrect)
		assert.Contains(t, res.Anomaly, ErrNoAnswerRecords.Error())
		assert.Contains(t, logs.String(), "Data integrity anomaly")
	})

	t.Run("unknown type", func(t *testing.T) {
		scorer, logs := newTestScorer()
		q := &models.Question{ID: 7, Type: "essay", Answers: models.ChoicePayload{{ID: 1, IsCorrect: true}}}
		res := scorer.Score(ctx, q, models.SubmittedResponse{SelectedAnswerIDs: []uint{1}})
		assert.False(t, res.IsCorrect)
		assert.Contains(t, res.Anomaly, ErrUnknownQuestionType.Error())
		assert.Contains(t, logs.String(), "question_id=7")
	})

	t.Run("payload mismatch", func(t *testing.T) {
		scorer, _ := newTestScorer()
		q := &models.Question{ID: 8, Type: models.Sequence, Answers: models.ChoicePayload{{ID: 1, IsCorrect: true}}}
		res := scorer.Score(ctx, q, models.SubmittedResponse{SelectedAnswerIDs: []uint{1}})
		assert.False(t, res.IsCorrect)
		assert.Contains(t, res.Anomaly, ErrPayloadMismatch.Error())
	})

	t.Run("choice without correct flag", func(t *testing.T) {
		scorer, _ := newTestScorer()
		q := &models.Question{ID: 9, Type: models.SingleChoice, Answers: models.ChoicePayload{{ID: 1}}}
		res := scorer.Score(ctx, q, models.SubmittedResponse{})
		assert.False(t, res.IsCorrect)
		assert.Equal(t, ErrNoCorrectChoice.Error(), res.Anomaly)
	})
}

func TestScorer_Idempotent(t *testing.T) {
	scorer, _ := newTestScorer()
	q := choiceQuestion(models.MultipleChoice)
	resp := models.SubmittedResponse{SelectedAnswerIDs: []uint{12, 10}}

	first := scorer.Score(context.Background(), q, resp)
	second := scorer.Score(context.Background(), q, resp)
	assert.Equal(t, first, second)
	assert.True(t, first.IsCorrect)
}

type alwaysCorrect struct{}

func (alwaysCorrect) Correct(models.AnswerPayload, models.SubmittedResponse) (bool, error) {
	return true, nil
}

func TestScorer_WithStrategy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	scorer := NewScorer(logger, WithStrategy(models.SingleChoice, alwaysCorrect{}))

	res := scorer.Score(context.Background(), choiceQuestion(models.SingleChoice), models.SubmittedResponse{})
	assert.True(t, res.IsCorrect)
}

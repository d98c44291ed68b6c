package models

import (
	"sort"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Matching       QuestionType = "matching"
	Sequence       QuestionType = "sequence"
	DragDrop       QuestionType = "drag_drop"
	DropdownFill   QuestionType = "dropdown"
)

// QuestionTypes lists every type tag the engine can score.
var QuestionTypes = []QuestionType{
	SingleChoice, MultipleChoice, TrueFalse, Matching, Sequence, DragDrop, DropdownFill,
}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// IsChoice reports whether the type is answered by selecting ChoiceAnswer ids.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultipleChoice || t == TrueFalse
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

type Question struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	CategoryID  uint            `json:"category_id" gorm:"index"`
	Text        string          `json:"text" gorm:"type:text;not null"`
	Type        QuestionType    `json:"type" gorm:"not null;size:30;index"`
	Difficulty  DifficultyLevel `json:"difficulty" gorm:"size:10;default:Medium"`
	Points      int             `json:"points" gorm:"not null;default:1"`
	Explanation *string         `json:"explanation,omitempty" gorm:"type:text"`

	// Answers holds exactly one payload variant matching Type. Loaded from the per-type tables.
	Answers AnswerPayload `json:"answers,omitempty" gorm:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// ===== ANSWER VARIANTS =====

// AnswerPayload is the closed set of answer shapes a question can carry.
type AnswerPayload interface {
	// Supports reports whether the payload is the variant expected for t.
	Supports(t QuestionType) bool
	Len() int
	answerPayload()
}

type ChoiceAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	Position   int    `json:"position"`
}

func (ChoiceAnswer) TableName() string { return "choice_answers" }

type MatchItem struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	LeftText   string `json:"left_text" gorm:"not null"`
	RightText  string `json:"right_text" gorm:"not null"`
	Position   int    `json:"position"`
}

func (MatchItem) TableName() string { return "match_items" }

type SequenceItem struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	QuestionID      uint   `json:"question_id" gorm:"not null;index"`
	Text            string `json:"text" gorm:"not null"`
	CorrectPosition int    `json:"correct_position" gorm:"not null"` // 1-based
}

func (SequenceItem) TableName() string { return "sequence_items" }

type DragDropItem struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Content    string `json:"content" gorm:"not null"`
	TargetZone string `json:"target_zone" gorm:"not null"`
	Position   int    `json:"position"`
}

func (DragDropItem) TableName() string { return "drag_drop_items" }

type DropdownItem struct {
	ID            uint                        `json:"id" gorm:"primaryKey"`
	QuestionID    uint                        `json:"question_id" gorm:"not null;index"`
	Statement     string                      `json:"statement" gorm:"type:text;not null"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectOption string                      `json:"correct_option" gorm:"not null"`
	Position      int                         `json:"position"`
}

func (DropdownItem) TableName() string { return "dropdown_items" }

type ChoicePayload []ChoiceAnswer
type MatchingPayload []MatchItem
type SequencePayload []SequenceItem
type DragDropPayload []DragDropItem
type DropdownPayload []DropdownItem

func (p ChoicePayload) Supports(t QuestionType) bool { return t.IsChoice() }
func (p ChoicePayload) Len() int                     { return len(p) }
func (ChoicePayload) answerPayload()                 {}

func (p MatchingPayload) Supports(t QuestionType) bool { return t == Matching }
func (p MatchingPayload) Len() int                     { return len(p) }
func (MatchingPayload) answerPayload()                 {}

func (p SequencePayload) Supports(t QuestionType) bool { return t == Sequence }
func (p SequencePayload) Len() int                     { return len(p) }
func (SequencePayload) answerPayload()                 {}

func (p DragDropPayload) Supports(t QuestionType) bool { return t == DragDrop }
func (p DragDropPayload) Len() int                     { return len(p) }
func (DragDropPayload) answerPayload()                 {}

func (p DropdownPayload) Supports(t QuestionType) bool { return t == DropdownFill }
func (p DropdownPayload) Len() int                     { return len(p) }
func (DropdownPayload) answerPayload()                 {}

// CorrectIDs returns the ids of the choices flagged correct.
func (p ChoicePayload) CorrectIDs() []uint {
	ids := make([]uint, 0, len(p))
	for _, c := range p {
		if c.IsCorrect {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// ===== PUBLIC VIEW =====

// PublicQuestion is a question as delivered to a test-taker, without any correctness data.
type PublicQuestion struct {
	ID         uint            `json:"id"`
	Type       QuestionType    `json:"type"`
	Text       string          `json:"text"`
	Difficulty DifficultyLevel `json:"difficulty"`
	Points     int             `json:"points"`
	Choices    []PublicItem    `json:"choices,omitempty"`
	MatchLeft  []string        `json:"match_left,omitempty"`
	MatchRight []string        `json:"match_right,omitempty"`
	Items      []PublicItem    `json:"items,omitempty"`
	DropZones  []string        `json:"drop_zones,omitempty"`
	Dropdowns  []PublicSelect  `json:"dropdowns,omitempty"`
}

type PublicItem struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type PublicSelect struct {
	ID        uint     `json:"id"`
	Statement string   `json:"statement"`
	Options   []string `json:"options"`
}

func (q *Question) PublicView() PublicQuestion {
	view := PublicQuestion{
		ID:         q.ID,
		Type:       q.Type,
		Text:       q.Text,
		Difficulty: q.Difficulty,
		Points:     q.Points,
	}

	switch p := q.Answers.(type) {
	case ChoicePayload:
		sorted := append(ChoicePayload(nil), p...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
		for _, c := range sorted {
			view.Choices = append(view.Choices, PublicItem{ID: c.ID, Text: c.Text})
		}
	case MatchingPayload:
		sorted := append(MatchingPayload(nil), p...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
		for _, m := range sorted {
			view.MatchLeft = append(view.MatchLeft, m.LeftText)
			view.MatchRight = append(view.MatchRight, m.RightText)
		}
		sort.Strings(view.MatchRight)
	case SequencePayload:
		sorted := append(SequencePayload(nil), p...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		for _, s := range sorted {
			view.Items = append(view.Items, PublicItem{ID: s.ID, Text: s.Text})
		}
	case DragDropPayload:
		sorted := append(DragDropPayload(nil), p...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
		zones := make(map[string]struct{})
		for _, d := range sorted {
			view.Items = append(view.Items, PublicItem{ID: d.ID, Text: d.Content})
			zones[d.TargetZone] = struct{}{}
		}
		for z := range zones {
			view.DropZones = append(view.DropZones, z)
		}
		sort.Strings(view.DropZones)
	case DropdownPayload:
		sorted := append(DropdownPayload(nil), p...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
		for _, d := range sorted {
			view.Dropdowns = append(view.Dropdowns, PublicSelect{
				ID:        d.ID,
				Statement: d.Statement,
				Options:   append([]string(nil), d.Options...),
			})
		}
	}

	return view
}

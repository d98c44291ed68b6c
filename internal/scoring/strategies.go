package scoring

import (
	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// --- Strategies ---

// choiceStrategy: the selected ids must equal the set of correct ids.
type choiceStrategy struct{}

func (choiceStrategy) Correct(payload models.AnswerPayload, response models.SubmittedResponse) (bool, error) {
	choices := payload.(models.ChoicePayload)
	correct := toSet(choices.CorrectIDs())
	if len(correct) == 0 {
		return false, ErrNoCorrectChoice
	}
	return setEqual(correct, toSet(response.SelectedAnswerIDs)), nil
}

// matchingStrategy: the submitted pairs must be exactly the authored pairs.
type matchingStrategy struct{}

func (matchingStrategy) Correct(payload models.AnswerPayload, response models.SubmittedResponse) (bool, error) {
	items := payload.(models.MatchingPayload)
	if len(response.Pairs) != len(items) {
		return false, nil
	}

	remaining := make(map[models.MatchPair]int, len(items))
	for _, it := range items {
		remaining[models.MatchPair{Left: it.LeftText, Right: it.RightText}]++
	}
	for _, p := range response.Pairs {
		if remaining[p] == 0 {
			return false, nil
		}
		remaining[p]--
	}
	return true, nil
}

// sequenceStrategy: the item at index i must have correct position i+1.
type sequenceStrategy struct{}

func (sequenceStrategy) Correct(payload models.AnswerPayload, response models.SubmittedResponse) (bool, error) {
	items := payload.(models.SequencePayload)
	if len(response.Order) != len(items) {
		return false, nil
	}

	positions := make(map[uint]int, len(items))
	for _, it := range items {
		positions[it.ID] = it.CorrectPosition
	}
	for i, id := range response.Order {
		pos, ok := positions[id]
		if !ok || pos != i+1 {
			return false, nil
		}
	}
	return true, nil
}

// dragDropStrategy: every item must be placed once, in its authored zone.
type dragDropStrategy struct{}

func (dragDropStrategy) Correct(payload models.AnswerPayload, response models.SubmittedResponse) (bool, error) {
	items := payload.(models.DragDropPayload)
	if len(response.Placements) != len(items) {
		return false, nil
	}

	zones := make(map[uint]string, len(items))
	for _, it := range items {
		zones[it.ID] = it.TargetZone
	}
	seen := make(map[uint]struct{}, len(items))
	for _, p := range response.Placements {
		zone, ok := zones[p.ItemID]
		if !ok || zone != p.Zone {
			return false, nil
		}
		if _, dup := seen[p.ItemID]; dup {
			return false, nil
		}
		seen[p.ItemID] = struct{}{}
	}
	return true, nil
}

// dropdownStrategy: every statement must have its correct option selected.
type dropdownStrategy struct{}

func (dropdownStrategy) Correct(payload models.AnswerPayload, response models.SubmittedResponse) (bool, error) {
	items := payload.(models.DropdownPayload)
	if len(response.Selections) != len(items) {
		return false, nil
	}

	expected := make(map[uint]string, len(items))
	for _, it := range items {
		expected[it.ID] = it.CorrectOption
	}
	seen := make(map[uint]struct{}, len(items))
	for _, s := range response.Selections {
		option, ok := expected[s.ItemID]
		if !ok || option != s.Option {
			return false, nil
		}
		if _, dup := seen[s.ItemID]; dup {
			return false, nil
		}
		seen[s.ItemID] = struct{}{}
	}
	return true, nil
}

// --- helpers ---

func toSet(ids []uint) map[uint]struct{} {
	m := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[uint]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

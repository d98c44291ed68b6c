package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q QuestionPostgreSQL) GetByTest(ctx context.Context, testID uint) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("questions.*").
		Joins("JOIN test_questions ON test_questions.question_id = questions.id").
		Where("test_questions.test_id = ?", testID).
		Order("test_questions.position ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q QuestionPostgreSQL) GetAnswers(ctx context.Context, questions []*models.Question) (map[uint]models.AnswerPayload, error) {
	byType := make(map[models.QuestionType][]uint)
	for _, question := range questions {
		family := question.Type
		if family.IsChoice() {
			family = models.SingleChoice
		}
		byType[family] = append(byType[family], question.ID)
	}

	result := make(map[uint]models.AnswerPayload, len(questions))
	db := q.db.WithContext(ctx)

	for family, ids := range byType {
		var err error
		switch family {
		case models.SingleChoice:
			err = loadPayload(db, ids, "position ASC", func(rows []models.ChoiceAnswer) {
				for _, r := range rows {
					p, _ := result[r.QuestionID].(models.ChoicePayload)
					result[r.QuestionID] = append(p, r)
				}
			})
		case models.Matching:
			err = loadPayload(db, ids, "position ASC", func(rows []models.MatchItem) {
				for _, r := range rows {
					p, _ := result[r.QuestionID].(models.MatchingPayload)
					result[r.QuestionID] = append(p, r)
				}
			})
		case models.Sequence:
			err = loadPayload(db, ids, "id ASC", func(rows []models.SequenceItem) {
				for _, r := range rows {
					p, _ := result[r.QuestionID].(models.SequencePayload)
					result[r.QuestionID] = append(p, r)
				}
			})
		case models.DragDrop:
			err = loadPayload(db, ids, "position ASC", func(rows []models.DragDropItem) {
				for _, r := range rows {
					p, _ := result[r.QuestionID].(models.DragDropPayload)
					result[r.QuestionID] = append(p, r)
				}
			})
		case models.DropdownFill:
			err = loadPayload(db, ids, "position ASC", func(rows []models.DropdownItem) {
				for _, r := range rows {
					p, _ := result[r.QuestionID].(models.DropdownPayload)
					result[r.QuestionID] = append(p, r)
				}
			})
		default:
			// Unknown type tags carry no loadable payload; the scorer reports them.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s answers: %w", family, err)
		}
	}

	return result, nil
}

func loadPayload[T any](db *gorm.DB, questionIDs []uint, order string, collect func([]T)) error {
	var rows []T
	if err := db.Where("question_id IN ?", questionIDs).Order(order).Find(&rows).Error; err != nil {
		return err
	}
	collect(rows)
	return nil
}

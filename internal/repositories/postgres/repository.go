package postgres

import (
	"fmt"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	test       repositories.TestRepository
	question   repositories.QuestionRepository
	session    repositories.SessionRepository
	userAnswer repositories.UserAnswerRepository
	purchase   repositories.PurchaseRepository
	profile    repositories.ProfileRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		test:       NewTestPostgreSQL(db),
		question:   NewQuestionPostgreSQL(db),
		session:    NewSessionPostgreSQL(db),
		userAnswer: NewUserAnswerPostgreSQL(db),
		purchase:   NewPurchasePostgreSQL(db),
		profile:    NewProfilePostgreSQL(db),
	}
}

func (r *repository) Test() repositories.TestRepository             { return r.test }
func (r *repository) Question() repositories.QuestionRepository     { return r.question }
func (r *repository) Session() repositories.SessionRepository       { return r.session }
func (r *repository) UserAnswer() repositories.UserAnswerRepository { return r.userAnswer }
func (r *repository) Purchase() repositories.PurchaseRepository     { return r.purchase }
func (r *repository) Profile() repositories.ProfileRepository       { return r.profile }

// AutoMigrate creates the engine's tables, including the partial unique index on active sessions.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Test{},
		&models.TestQuestion{},
		&models.Question{},
		&models.ChoiceAnswer{},
		&models.MatchItem{},
		&models.SequenceItem{},
		&models.DragDropItem{},
		&models.DropdownItem{},
		&models.TestSession{},
		&models.UserAnswer{},
		&models.PurchaseRecord{},
		&models.Profile{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

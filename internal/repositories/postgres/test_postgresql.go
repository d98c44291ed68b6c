package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"gorm.io/gorm"
)

type TestPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{db: db}
}

func (t TestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	if err := t.db.WithContext(ctx).
		Preload("Questions", orderByPosition).
		First(&test, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

func (t TestPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Test, error) {
	if len(ids) == 0 {
		return []*models.Test{}, nil
	}

	var tests []*models.Test
	if err := t.db.WithContext(ctx).
		Where("id IN ?", ids).
		Preload("Questions", orderByPosition).
		Order("id ASC").
		Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

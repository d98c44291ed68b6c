package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"gorm.io/gorm"
)

type PurchasePostgreSQL struct {
	db *gorm.DB
}

func NewPurchasePostgreSQL(db *gorm.DB) repositories.PurchaseRepository {
	return &PurchasePostgreSQL{db: db}
}

func (p PurchasePostgreSQL) HasActivePurchase(ctx context.Context, userID string, testID uint) (bool, error) {
	var count int64
	if err := p.db.WithContext(ctx).
		Model(&models.PurchaseRecord{}).
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, models.PurchaseActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p PurchasePostgreSQL) ActivePurchasedTestIDs(ctx context.Context, userID string, testIDs []uint) (map[uint]bool, error) {
	owned := make(map[uint]bool, len(testIDs))
	if len(testIDs) == 0 {
		return owned, nil
	}

	var ids []uint
	if err := p.db.WithContext(ctx).
		Model(&models.PurchaseRecord{}).
		Where("user_id = ? AND status = ? AND test_id IN ?", userID, models.PurchaseActive, testIDs).
		Distinct().
		Pluck("test_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

type ProfilePostgreSQL struct {
	db *gorm.DB
}

func NewProfilePostgreSQL(db *gorm.DB) repositories.ProfileRepository {
	return &ProfilePostgreSQL{db: db}
}

func (p ProfilePostgreSQL) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

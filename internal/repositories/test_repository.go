package repositories

import (
	"context"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// TestRepository reads authored tests. Questions are preloaded in position order.
type TestRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	// GetByIDs returns the tests that exist; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Test, error)
}

package repositories

import (
	"context"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
)

// ProfileRepository reads the capability metadata attached to an identity.
type ProfileRepository interface {
	// GetByUserID returns nil, nil when no profile exists.
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

// AdminChecker is the single place that decides whether an identity holds the
// administrator capability. Only the access engine consults it.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// ProfileAdminChecker reads the capability from the profile table: either the is_admin
// column or a "role": "admin" entry in the profile metadata.
type ProfileAdminChecker struct {
	profiles repositories.ProfileRepository
}

func NewProfileAdminChecker(profiles repositories.ProfileRepository) *ProfileAdminChecker {
	return &ProfileAdminChecker{profiles: profiles}
}

func (c *ProfileAdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	profile, err := c.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return false, nil
	}
	if profile.IsAdmin {
		return true, nil
	}
	if len(profile.Metadata) == 0 {
		return false, nil
	}

	var metadata struct {
		Role  string   `json:"role"`
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal(profile.Metadata, &metadata); err != nil {
		return false, fmt.Errorf("failed to decode profile metadata: %w", err)
	}
	if strings.EqualFold(metadata.Role, "admin") {
		return true, nil
	}
	for _, role := range metadata.Roles {
		if strings.EqualFold(role, "admin") {
			return true, nil
		}
	}
	return false, nil
}

// CasdoorUserSource is the slice of the Casdoor client the checker needs
type CasdoorUserSource interface {
	GetUser(name string) (*casdoorsdk.User, error)
}

// CasdoorAdminChecker asks the identity provider directly.
type CasdoorAdminChecker struct {
	client CasdoorUserSource
}

func NewCasdoorAdminChecker(client CasdoorUserSource) *CasdoorAdminChecker {
	return &CasdoorAdminChecker{client: client}
}

func (c *CasdoorAdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	user, err := c.client.GetUser(userID)
	if err != nil {
		return false, fmt.Errorf("failed to load casdoor user: %w", err)
	}
	if user == nil {
		return false, nil
	}
	return user.IsAdmin, nil
}

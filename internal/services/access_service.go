package services

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/monitoring"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type AccessStatus string

const (
	AccessGranted      AccessStatus = "granted"
	AccessLocked       AccessStatus = "locked"
	AccessAuthRequired AccessStatus = "auth_required"
)

type AccessResult struct {
	TestID       uint            `json:"test_id"`
	Status       AccessStatus    `json:"status"`
	IsFree       bool            `json:"is_free"`
	TestPrice    decimal.Decimal `json:"test_price"`
	TestCurrency string          `json:"test_currency"`
	HasPurchased bool            `json:"has_purchased"`
}

// AccessService decides whether an identity may take a test. An empty userID means no identity.
// Lookup failures always resolve to locked.
type AccessService interface {
	Decide(ctx context.Context, userID string, info models.TestAccessInfo) AccessResult
	CheckAccess(ctx context.Context, userID string, testID uint) (*AccessResult, error)
	// CheckAccessMany answers for every existing test in testIDs; unknown ids are absent from the map.
	CheckAccessMany(ctx context.Context, userID string, testIDs []uint) (map[uint]AccessResult, error)
}

type accessService struct {
	content   ContentService
	purchases repositories.PurchaseRepository
	admins    AdminChecker
	logger    *ServiceLogger
}

func NewAccessService(content ContentService, purchases repositories.PurchaseRepository, admins AdminChecker, logger *slog.Logger) AccessService {
	return &accessService{
		content:   content,
		purchases: purchases,
		admins:    admins,
		logger:    NewServiceLogger(logger, "access"),
	}
}

// Decide applies the decision order: free, then identity, then admin, then purchase.
func (s *accessService) Decide(ctx context.Context, userID string, info models.TestAccessInfo) AccessResult {
	result := baseResult(info)

	switch {
	case info.IsFreeOfCharge():
		result.Status = AccessGranted
	case userID == "":
		result.Status = AccessAuthRequired
	default:
		isAdmin, err := s.admins.IsAdmin(ctx, userID)
		if err != nil {
			s.logger.Logger().WarnContext(ctx, "Admin lookup failed, denying access",
				"user_id", userID, "test_id", info.TestID, "error", err)
			result.Status = AccessLocked
			break
		}
		if isAdmin {
			result.Status = AccessGranted
			result.HasPurchased = true
			break
		}

		owned, err := s.purchases.HasActivePurchase(ctx, userID, info.TestID)
		if err != nil {
			s.logger.Logger().WarnContext(ctx, "Purchase lookup failed, denying access",
				"user_id", userID, "test_id", info.TestID, "error", err)
			result.Status = AccessLocked
			break
		}
		result.HasPurchased = owned
		if owned {
			result.Status = AccessGranted
		} else {
			result.Status = AccessLocked
		}
	}

	monitoring.AccessDecisions.WithLabelValues(string(result.Status)).Inc()
	return result
}

func (s *accessService) CheckAccess(ctx context.Context, userID string, testID uint) (result *AccessResult, err error) {
	ctx, op := s.logger.Start(ctx, "check_access", userID)
	op.SetAttributes(attribute.Int64("test.id", int64(testID)))
	defer func() { op.End(strconv.FormatUint(uint64(testID), 10), err) }()

	test, err := s.content.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	decision := s.Decide(ctx, userID, test.AccessInfo())
	return &decision, nil
}

// CheckAccessMany resolves free tests without storage and makes at most one admin
// lookup and one batched purchase lookup for the rest.
func (s *accessService) CheckAccessMany(ctx context.Context, userID string, testIDs []uint) (results map[uint]AccessResult, err error) {
	ctx, op := s.logger.Start(ctx, "check_access_many", userID)
	op.SetAttributes(attribute.Int("tests.count", len(testIDs)))
	defer func() { op.End("", err) }()

	tests, err := s.content.GetTests(ctx, testIDs)
	if err != nil {
		return nil, err
	}

	results = make(map[uint]AccessResult, len(tests))
	var paid []models.TestAccessInfo
	for _, test := range tests {
		info := test.AccessInfo()
		if info.IsFreeOfCharge() || userID == "" {
			results[info.TestID] = s.Decide(ctx, userID, info)
			continue
		}
		paid = append(paid, info)
	}
	if len(paid) == 0 {
		return results, nil
	}

	settle := func(info models.TestAccessInfo, status AccessStatus, purchased bool) {
		result := baseResult(info)
		result.Status = status
		result.HasPurchased = purchased
		results[info.TestID] = result
		monitoring.AccessDecisions.WithLabelValues(string(status)).Inc()
	}

	isAdmin, err := s.admins.IsAdmin(ctx, userID)
	if err != nil {
		s.logger.Logger().WarnContext(ctx, "Admin lookup failed, denying access to paid tests",
			"user_id", userID, "paid_tests", len(paid), "error", err)
		for _, info := range paid {
			settle(info, AccessLocked, false)
		}
		return results, nil
	}
	if isAdmin {
		for _, info := range paid {
			settle(info, AccessGranted, true)
		}
		return results, nil
	}

	ids := make([]uint, 0, len(paid))
	for _, info := range paid {
		ids = append(ids, info.TestID)
	}
	owned, err := s.purchases.ActivePurchasedTestIDs(ctx, userID, ids)
	if err != nil {
		s.logger.Logger().WarnContext(ctx, "Batched purchase lookup failed, denying access to paid tests",
			"user_id", userID, "paid_tests", len(paid), "error", err)
		owned = nil
	}
	for _, info := range paid {
		if owned[info.TestID] {
			settle(info, AccessGranted, true)
		} else {
			settle(info, AccessLocked, false)
		}
	}
	return results, nil
}

func baseResult(info models.TestAccessInfo) AccessResult {
	return AccessResult{
		TestID:       info.TestID,
		IsFree:       info.IsFreeOfCharge(),
		TestPrice:    info.Price,
		TestCurrency: info.Currency,
	}
}

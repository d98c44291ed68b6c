package repositories

import "context"

// PurchaseRepository reads purchase records written by the payment collaborator.
type PurchaseRepository interface {
	HasActivePurchase(ctx context.Context, userID string, testID uint) (bool, error)
	// ActivePurchasedTestIDs answers HasActivePurchase for many tests in one lookup.
	ActivePurchasedTestIDs(ctx context.Context, userID string, testIDs []uint) (map[uint]bool, error)
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/models"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateIfNoActiveIsAtomic(t *testing.T) {
	store := NewStore()
	repo := store.Session()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _, err := repo.CreateIfNoActive(ctx, &models.TestSession{
				ID:        fmt.Sprintf("s-%d", i),
				UserID:    "user-1",
				TestID:    1,
				Status:    models.SessionInProgress,
				StartTime: time.Now(),
				Version:   1,
			})
			assert.NoError(t, err)
			ids <- s.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	distinct := map[string]struct{}{}
	for id := range ids {
		distinct[id] = struct{}{}
	}
	assert.Len(t, distinct, 1, "every caller sees the same session")
	assert.Equal(t, 1, store.CountSessions("user-1", 1, models.SessionInProgress))
}

func TestStore_UpdateRequiresMatchingVersion(t *testing.T) {
	store := NewStore()
	repo := store.Session()
	ctx := context.Background()

	created, ok, err := repo.CreateIfNoActive(ctx, &models.TestSession{
		ID: "s-1", UserID: "u", TestID: 1, Status: models.SessionInProgress, StartTime: time.Now(), Version: 1,
	})
	require.NoError(t, err)
	require.True(t, ok)

	stale := *created
	created.Score = 10
	require.NoError(t, repo.Update(ctx, created))
	assert.Equal(t, 2, created.Version)

	assert.ErrorIs(t, repo.Update(ctx, &stale), repositories.ErrVersionConflict)
	assert.ErrorIs(t, repo.ReplaceAnswers(ctx, &stale, nil), repositories.ErrVersionConflict)
}

func TestStore_PurchasesFollowStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	store.PutPurchase(&models.PurchaseRecord{UserID: "u", TestID: 5, Status: models.PurchaseActive})

	owned, err := store.Purchase().HasActivePurchase(ctx, "u", 5)
	require.NoError(t, err)
	assert.True(t, owned)

	store.SetPurchaseStatus("u", 5, models.PurchaseRefunded)
	owned, err = store.Purchase().HasActivePurchase(ctx, "u", 5)
	require.NoError(t, err)
	assert.False(t, owned)
}

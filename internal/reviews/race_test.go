package reviews

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
)

// The shared in-memory cache does not arbitrate cross-connection locks the
// way a real database does, so concurrency tests run against a throwaway
// file with immediate write transactions and a busy timeout.
func newRaceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "reviews.db") + "?_busy_timeout=5000&_txlock=immediate"
	return openTestDB(t, dsn)
}

func TestLeaveReview_ConcurrentSubmissionsOneWins(t *testing.T) {
	db := newRaceDB(t)
	svc, _ := newTestService(t, db)
	buyer := uuid.New()
	order := mustCreateOrder(t, db, buyer)
	ctx := context.Background()

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.LeaveReview(ctx, LeaveReviewInput{
				AuthorID: buyer,
				OrderID:  order.ID,
				Rating:   5,
				Body:     "great first impression, the second copy should bounce",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		// The loser gets the same clean rejection whether the pre-check or
		// the unique index caught it.
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation),
			"loser must fail with a validation error, got: %v", err)
	}
	assert.Equal(t, 1, winners)

	// One review, one trust movement. The deltas were applied exactly once.
	var reviewCount, eventCount int64
	require.NoError(t, db.Model(&models.Review{}).
		Where("order_id = ?", order.ID).Count(&reviewCount).Error)
	assert.Equal(t, int64(1), reviewCount)
	require.NoError(t, db.Model(&models.TrustEvent{}).
		Where("order_id = ?", order.ID).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

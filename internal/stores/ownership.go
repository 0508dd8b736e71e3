package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
)

// RequireOwner loads the store and verifies the actor owns it. A missing
// store surfaces as not-found; a mismatched owner as forbidden.
func RequireOwner(ctx context.Context, repo Repository, storeID, actorID uuid.UUID) error {
	store, err := repo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return err
	}
	if store.OwnerID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller does not own this store")
	}
	return nil
}

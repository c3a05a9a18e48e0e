package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/reservation"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

// reconcile validates every line against live reservations and product status under the
// cart row lock. Lines whose product is gone or not ACTIVE are dropped and their hold
// released; lines without a live hold are dropped; lines holding more than their reservation
// are clamped. The pruned cart is persisted only when something changed, so a second pass is
// a no-op. Holds larger than their line are shrunk back to the line after commit.
func (s *service) reconcile(ctx context.Context, userID uuid.UUID) (*UpdatedCartInfo, error) {
	info := &UpdatedCartInfo{
		RemovedProducts:  []RemovedProduct{},
		AdjustedProducts: []AdjustedProduct{},
	}
	var surplus []surplusHold

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		record, err := txRepo.FindForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				info.Cart = emptyCart(userID)
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			info.Cart = FromModel(record)
			return nil
		}

		store := reservation.InTx(s.reservations, tx)
		holds, err := store.FindByUser(ctx, userID)
		if err != nil {
			return err
		}
		held := make(map[uuid.UUID]reservation.Reservation, len(holds))
		for _, hold := range holds {
			held[hold.ProductID] = hold
		}

		ids := make([]uuid.UUID, 0, len(record.Items))
		for _, item := range record.Items {
			ids = append(ids, item.ProductID)
		}
		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
		}

		kept := make([]models.CartItem, 0, len(record.Items))
		for _, item := range record.Items {
			product, found := catalog[item.ProductID]
			if !found || !product.Status.IsPurchasable() {
				if err := store.Release(ctx, userID, item.ProductID); err != nil {
					return err
				}
				info.RemovedProducts = append(info.RemovedProducts, removed(item, enums.CartRemovalProductUnavailable))
				continue
			}

			hold, live := held[item.ProductID]
			switch {
			case !live:
				info.RemovedProducts = append(info.RemovedProducts, removed(item, enums.CartRemovalReservationExpired))
				continue
			case hold.Quantity < item.Quantity:
				info.AdjustedProducts = append(info.AdjustedProducts, AdjustedProduct{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					From:        item.Quantity,
					To:          hold.Quantity,
				})
				item.Quantity = hold.Quantity
			case hold.Quantity > item.Quantity:
				surplus = append(surplus, surplusHold{hold: hold, want: item.Quantity})
			}
			kept = append(kept, item)
		}

		if info.Changed() {
			record.Items = kept
			if err := txRepo.ReplaceItems(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reconciled cart")
			}
		}
		info.Cart = FromModel(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range info.RemovedProducts {
		s.metrics.IncRemoved(string(r.Reason))
	}
	for range info.AdjustedProducts {
		s.metrics.IncClamped()
	}
	s.shrink(ctx, userID, surplus)
	return info, nil
}

// surplusHold is a live hold larger than its cart line.
type surplusHold struct {
	hold reservation.Reservation
	want int
}

// shrink re-reserves surplus holds at their line quantity, keeping the original expiry. A
// hold that changed since it was read is left to its owner.
func (s *service) shrink(ctx context.Context, userID uuid.UUID, surplus []surplusHold) {
	for _, sh := range surplus {
		remaining := sh.hold.ExpiresAt.Sub(s.now())
		if remaining <= 0 {
			continue
		}
		current, err := s.reservations.FindOne(ctx, userID, sh.hold.ProductID)
		if err != nil || current == nil || current.Quantity != sh.hold.Quantity || !current.ExpiresAt.Equal(sh.hold.ExpiresAt) {
			continue
		}
		if _, err := s.reservations.Reserve(ctx, userID, sh.hold.ProductID, sh.want, remaining); err != nil {
			s.warn(ctx, userID, "shrinking surplus hold failed; it expires with its ttl")
		}
	}
}

func removed(item models.CartItem, reason enums.CartRemovalReason) RemovedProduct {
	return RemovedProduct{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		Reason:      reason,
	}
}

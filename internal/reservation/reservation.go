// Package reservation holds time-bounded stock claims per (user, product).
package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

// Reservation is a live claim on quantity units of a product by one user.
type Reservation struct {
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is implemented by every reservation backend. Reads never return a reservation
// whose ExpiresAt has passed.
type Store interface {
	// Reserve creates or replaces the (user, product) claim when quantity fits into stock
	// minus every other live claim on the product.
	Reserve(ctx context.Context, userID, productID uuid.UUID, quantity int, ttl time.Duration) (*Reservation, error)
	Release(ctx context.Context, userID, productID uuid.UUID) error
	ReleaseAll(ctx context.Context, userID uuid.UUID) (int, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Reservation, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Reservation, error)
	// FindOne returns nil, nil when no live reservation exists.
	FindOne(ctx context.Context, userID, productID uuid.UUID) (*Reservation, error)
	Available(ctx context.Context, productID uuid.UUID) (int, error)
	PurgeExpired(ctx context.Context) (int, error)
}

// StockReader supplies the current stock count of a product.
type StockReader interface {
	StockCount(ctx context.Context, productID uuid.UUID) (int, error)
}

// Clock returns the current instant; injectable so tests can move time.
type Clock func() time.Time

func validateReserve(userID, productID uuid.UUID, quantity int, ttl time.Duration) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if ttl <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "ttl must be positive")
	}
	return nil
}

func outOfStock(productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("only %d unit(s) available", available)).
		WithDetails(map[string]any{
			"product_id": productID.String(),
			"requested":  requested,
			"available":  available,
		})
}

func storeUnavailable(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

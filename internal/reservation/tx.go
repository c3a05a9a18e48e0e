package reservation

import (
	"context"

	"gorm.io/gorm"
)

// txScoper is implemented by stores that keep reservations in the database and can join a
// caller's transaction.
type txScoper interface {
	WithTx(tx *gorm.DB) Store
}

// InTx returns store bound to tx when the backend lives in the database, so its reads and
// releases commit or roll back with the caller's writes. Other backends are returned as is.
func InTx(store Store, tx *gorm.DB) Store {
	if tx == nil {
		return store
	}
	if scoped, ok := store.(txScoper); ok {
		return scoped.WithTx(tx)
	}
	return store
}

// joinedTx runs callbacks on an already open transaction.
type joinedTx struct {
	tx *gorm.DB
}

func (j joinedTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(j.tx.WithContext(ctx))
}

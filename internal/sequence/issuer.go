// Package sequence hands out human readable, strictly increasing numbers per namespace.
package sequence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

// upsertIncrementSQL creates the counter at 1 or bumps it in one statement. Postgres and
// SQLite (3.35+) both accept the ON CONFLICT ... RETURNING form.
const upsertIncrementSQL = `
INSERT INTO sequence_counters (name, value, updated_at)
VALUES (?, 1, ?)
ON CONFLICT (name) DO UPDATE
SET value = sequence_counters.value + 1, updated_at = excluded.updated_at
RETURNING value`

const resetSQL = `
INSERT INTO sequence_counters (name, value, updated_at)
VALUES (?, 0, ?)
ON CONFLICT (name) DO UPDATE
SET value = 0, updated_at = excluded.updated_at`

// Issuer is the numbering surface used by creation flows.
type Issuer interface {
	Issue(ctx context.Context, ns enums.SequenceNamespace) (int64, error)
	IssueTx(ctx context.Context, tx *gorm.DB, ns enums.SequenceNamespace) (int64, error)
	Next(ctx context.Context, tx *gorm.DB, ns enums.SequenceNamespace) (string, error)
	Reset(ctx context.Context, ns enums.SequenceNamespace) error
	Current(ctx context.Context, ns enums.SequenceNamespace) (int64, error)
}

type issuer struct {
	db  *gorm.DB
	now func() time.Time
}

// NewIssuer binds an issuer to the counter table.
func NewIssuer(db *gorm.DB) (Issuer, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &issuer{db: db, now: time.Now}, nil
}

// Issue increments the namespace counter in its own statement and returns the new value.
func (i *issuer) Issue(ctx context.Context, ns enums.SequenceNamespace) (int64, error) {
	return i.IssueTx(ctx, i.db, ns)
}

// IssueTx increments inside the caller's transaction so the parent row and the number
// commit or roll back together.
func (i *issuer) IssueTx(ctx context.Context, tx *gorm.DB, ns enums.SequenceNamespace) (int64, error) {
	if !ns.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown sequence namespace %q", ns))
	}
	if tx == nil {
		tx = i.db
	}

	var value int64
	row := tx.WithContext(ctx).Raw(upsertIncrementSQL, string(ns), i.now().UTC()).Row()
	if err := row.Scan(&value); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue sequence number")
	}
	return value, nil
}

// Next issues a value and renders it in the namespace's display format.
func (i *issuer) Next(ctx context.Context, tx *gorm.DB, ns enums.SequenceNamespace) (string, error) {
	value, err := i.IssueTx(ctx, tx, ns)
	if err != nil {
		return "", err
	}
	return ns.Format(value), nil
}

// Reset puts the counter back to its zero baseline. Administrative only.
func (i *issuer) Reset(ctx context.Context, ns enums.SequenceNamespace) error {
	if !ns.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown sequence namespace %q", ns))
	}
	if err := i.db.WithContext(ctx).Exec(resetSQL, string(ns), i.now().UTC()).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset sequence")
	}
	return nil
}

// Current reads the last issued value, 0 when the namespace has never been used.
func (i *issuer) Current(ctx context.Context, ns enums.SequenceNamespace) (int64, error) {
	var values []int64
	err := i.db.WithContext(ctx).
		Table("sequence_counters").
		Where("name = ?", string(ns)).
		Pluck("value", &values).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read sequence")
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0], nil
}

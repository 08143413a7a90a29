package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

// Ledger moves variant stock. Callers pass their transaction so stock changes
// commit or roll back with the surrounding order mutation.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error
}

type ledger struct {
	db *gorm.DB
}

// NewLedger returns a stock ledger bound to db. A nil tx on either operation
// falls back to db.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return l.db
}

// Reserve decrements stock in a single conditional statement. Two callers
// racing for the last units cannot both succeed.
func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.conn(tx).WithContext(ctx).
		Model(&models.Variant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Conflict(pkgerrors.ReasonInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"variant_id": variantID.String(), "requested": qty})
	}
	return nil
}

// Release returns stock to a variant. There is no upper bound.
func (l *ledger) Release(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.conn(tx).WithContext(ctx).
		Model(&models.Variant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", variantID))
	}
	return nil
}

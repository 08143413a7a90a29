package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

// Catalog reads variants together with their product for availability checks.
type Catalog interface {
	WithTx(tx *gorm.DB) Catalog
	GetVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Variant, error)
}

type catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) Catalog {
	return &catalog{db: db}
}

func (c *catalog) WithTx(tx *gorm.DB) Catalog {
	if tx == nil {
		return c
	}
	return &catalog{db: tx}
}

func (c *catalog) GetVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	err := c.db.WithContext(ctx).
		Preload("Product.Category").
		Where("id = ?", id).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(pkgerrors.ReasonProductUnavailable, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	return &variant, nil
}

func (c *catalog) GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Variant, error) {
	out := make(map[uuid.UUID]*models.Variant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var variants []models.Variant
	if err := c.db.WithContext(ctx).
		Preload("Product.Category").
		Where("id IN ?", ids).
		Find(&variants).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variants")
	}
	for i := range variants {
		out[variants[i].ID] = &variants[i]
	}
	return out, nil
}

// IsAvailable reports whether the variant can be sold: neither it nor its
// product is blocked and the product and its category are listed.
func IsAvailable(v *models.Variant) bool {
	if v == nil || v.IsBlocked {
		return false
	}
	if v.Product == nil || v.Product.IsBlocked || !v.Product.IsListed {
		return false
	}
	if v.Product.Category != nil && !v.Product.Category.IsListed {
		return false
	}
	return true
}

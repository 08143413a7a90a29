package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/internal/inventory"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

// Service exposes the per-user cart. Quantities are checked against live stock
// on every mutation and again when the order is placed.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, variantID uuid.UUID, qty int) (*View, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
	LoadForCheckout(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type ViewItem struct {
	ID             uuid.UUID `json:"id"`
	VariantID      uuid.UUID `json:"variant_id"`
	ProductName    string    `json:"product_name"`
	Size           string    `json:"size"`
	Color          string    `json:"color"`
	Quantity       int       `json:"quantity"`
	UnitPricePaise int64     `json:"unit_price_paise"`
	LineTotalPaise int64     `json:"line_total_paise"`
	Available      bool      `json:"available"`
	Stock          int       `json:"stock"`
}

type View struct {
	CartID        uuid.UUID  `json:"cart_id"`
	Items         []ViewItem `json:"items"`
	SubtotalPaise int64      `json:"subtotal_paise"`
}

type service struct {
	repo    Repository
	catalog inventory.Catalog
	maxQty  int
}

func NewService(repo Repository, catalog inventory.Catalog, maxQtyPerItem int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if maxQtyPerItem <= 0 {
		return nil, fmt.Errorf("max quantity per item must be positive")
	}
	return &service{repo: repo, catalog: catalog, maxQty: maxQtyPerItem}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	c, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return buildView(c), nil
}

func (s *service) AddItem(ctx context.Context, userID, variantID uuid.UUID, qty int) (*View, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	variant, err := s.availableVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	item, err := s.repo.FindItemByVariant(ctx, c.ID, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if item == nil {
		item = &models.CartItem{CartID: c.ID, VariantID: variantID}
	}
	if err := s.checkQuantity(variant, item.Quantity+qty); err != nil {
		return nil, err
	}
	item.Quantity += qty
	if err := s.save(ctx, item, variant); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*View, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	variant, err := s.availableVariant(ctx, item.VariantID)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuantity(variant, qty); err != nil {
		return nil, err
	}
	item.Quantity = qty
	if err := s.save(ctx, item, variant); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.DeleteItem(ctx, item.CartID, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.Get(ctx, userID)
}

// LoadForCheckout returns the user's cart inside tx, or an empty-cart error.
func (s *service) LoadForCheckout(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	c, err := s.repo.WithTx(tx).FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if c == nil || len(c.Items) == 0 {
		return nil, pkgerrors.Validation(pkgerrors.ReasonEmptyCart, "cart is empty")
	}
	return c, nil
}

func (s *service) Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	if err := s.repo.WithTx(tx).ClearItems(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	item, err := s.repo.FindItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return item, nil
}

func (s *service) availableVariant(ctx context.Context, variantID uuid.UUID) (*models.Variant, error) {
	variant, err := s.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !inventory.IsAvailable(variant) {
		return nil, pkgerrors.Conflict(pkgerrors.ReasonProductUnavailable, "product is unavailable")
	}
	return variant, nil
}

func (s *service) checkQuantity(variant *models.Variant, qty int) error {
	if qty > s.maxQty {
		return pkgerrors.Validation(pkgerrors.ReasonQuantityLimit, fmt.Sprintf("at most %d units per item", s.maxQty))
	}
	if qty > variant.Stock {
		return pkgerrors.Conflict(pkgerrors.ReasonInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"available": variant.Stock})
	}
	return nil
}

func (s *service) save(ctx context.Context, item *models.CartItem, variant *models.Variant) error {
	item.UnitPricePaise = variant.EffectivePricePaise()
	item.LineTotalPaise = item.UnitPricePaise * int64(item.Quantity)
	item.Variant = nil
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart item")
	}
	return nil
}

// buildView prices lines at the variant's current effective price.
func buildView(c *models.Cart) *View {
	view := &View{CartID: c.ID, Items: make([]ViewItem, 0, len(c.Items))}
	for _, item := range c.Items {
		vi := ViewItem{
			ID:             item.ID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPricePaise: item.UnitPricePaise,
			LineTotalPaise: item.LineTotalPaise,
		}
		if v := item.Variant; v != nil {
			vi.Size = v.Size
			vi.Color = v.Color
			vi.Stock = v.Stock
			vi.UnitPricePaise = v.EffectivePricePaise()
			vi.LineTotalPaise = vi.UnitPricePaise * int64(item.Quantity)
			vi.Available = inventory.IsAvailable(v)
			if v.Product != nil {
				vi.ProductName = v.Product.Name
			}
		}
		view.Items = append(view.Items, vi)
		view.SubtotalPaise += vi.LineTotalPaise
	}
	return view
}

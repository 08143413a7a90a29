package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

// Resolver prices a set of cart lines and an optional coupon. It has no side
// effects; the coupon redemption is written when the order commits.
type Resolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*Quote, error)
}

// LineInput is one cart line with its live variant.
type LineInput struct {
	Variant  *models.Variant
	Quantity int
}

type ResolveInput struct {
	UserID     uuid.UUID
	Items      []LineInput
	CouponCode string
	// ShippingFor maps the post-offer subtotal to a delivery charge.
	ShippingFor func(subtotalPaise int64) int64
	Now         time.Time
}

type QuoteLine struct {
	VariantID               uuid.UUID `json:"variant_id"`
	Quantity                int       `json:"quantity"`
	UnitPricePaise          int64     `json:"unit_price_paise"`
	EffectiveUnitPricePaise int64     `json:"effective_unit_price_paise"`
	ItemDiscountPaise       int64     `json:"item_discount_paise"`
	LineTotalPaise          int64     `json:"line_total_paise"`
}

// Quote is the priced checkout. FinalTotalPaise equals
// SubtotalPaise - CouponDiscountPaise + ShippingPaise.
type Quote struct {
	Items                []QuoteLine    `json:"items"`
	SubtotalPaise        int64          `json:"subtotal_paise"`
	ProductDiscountPaise int64          `json:"product_discount_paise"`
	CouponDiscountPaise  int64          `json:"coupon_discount_paise"`
	FinalSubtotalPaise   int64          `json:"final_subtotal_paise"`
	ShippingPaise        int64          `json:"shipping_paise"`
	FinalTotalPaise      int64          `json:"final_total_paise"`
	Coupon               *models.Coupon `json:"-"`
}

// TotalDiscountPaise is the combined offer and coupon saving.
func (q Quote) TotalDiscountPaise() int64 {
	return q.ProductDiscountPaise + q.CouponDiscountPaise
}

type resolver struct {
	coupons CouponRepository
}

func NewResolver(coupons CouponRepository) (Resolver, error) {
	if coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &resolver{coupons: coupons}, nil
}

func (r *resolver) Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*Quote, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.Validation(pkgerrors.ReasonEmptyCart, "cart is empty")
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	quote := &Quote{Items: make([]QuoteLine, 0, len(input.Items))}
	for _, item := range input.Items {
		if item.Variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line variant is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		qty := int64(item.Quantity)
		unit := item.Variant.PricePaise
		effective := item.Variant.EffectivePricePaise()
		line := QuoteLine{
			VariantID:               item.Variant.ID,
			Quantity:                item.Quantity,
			UnitPricePaise:          unit,
			EffectiveUnitPricePaise: effective,
			ItemDiscountPaise:       (unit - effective) * qty,
			LineTotalPaise:          effective * qty,
		}
		quote.Items = append(quote.Items, line)
		quote.SubtotalPaise += line.LineTotalPaise
		quote.ProductDiscountPaise += line.ItemDiscountPaise
	}

	if code := strings.TrimSpace(input.CouponCode); code != "" {
		coupon, err := r.applicableCoupon(ctx, tx, input.UserID, code, now)
		if err != nil {
			return nil, err
		}
		if quote.SubtotalPaise < coupon.MinOrderAmountPaise {
			return nil, pkgerrors.Validation(pkgerrors.ReasonBelowMinimumOrder,
				fmt.Sprintf("coupon %s requires a minimum order of %d paise", coupon.Code, coupon.MinOrderAmountPaise)).
				WithDetails(map[string]any{"min_order_amount_paise": coupon.MinOrderAmountPaise})
		}
		quote.CouponDiscountPaise = CouponDiscount(*coupon, quote.SubtotalPaise)
		quote.Coupon = coupon
	}

	quote.FinalSubtotalPaise = quote.SubtotalPaise - quote.CouponDiscountPaise
	if input.ShippingFor != nil {
		quote.ShippingPaise = input.ShippingFor(quote.SubtotalPaise)
	}
	quote.FinalTotalPaise = quote.FinalSubtotalPaise + quote.ShippingPaise
	return quote, nil
}

func (r *resolver) applicableCoupon(ctx context.Context, tx *gorm.DB, userID uuid.UUID, code string, now time.Time) (*models.Coupon, error) {
	repo := r.coupons.WithTx(tx)
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if coupon == nil || !coupon.ActiveAt(now) {
		return nil, pkgerrors.Conflict(pkgerrors.ReasonInvalidCoupon, "coupon is invalid or expired")
	}
	used, err := repo.HasRedeemed(ctx, coupon.ID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon redemption")
	}
	if used {
		return nil, pkgerrors.Conflict(pkgerrors.ReasonCouponAlreadyUsed, "coupon already used")
	}
	return coupon, nil
}

// CouponDiscount computes the discount for subtotalPaise, rounded half-up to
// whole paise and capped at the subtotal.
func CouponDiscount(coupon models.Coupon, subtotalPaise int64) int64 {
	var discount int64
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = decimal.NewFromInt(subtotalPaise).
			Mul(decimal.NewFromInt(coupon.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case enums.DiscountTypeFixed:
		discount = coupon.DiscountValue
	}
	if discount > subtotalPaise {
		discount = subtotalPaise
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

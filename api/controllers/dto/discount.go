package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
)

type Coupon struct {
	ID                  uuid.UUID          `json:"id"`
	Code                string             `json:"code"`
	Description         string             `json:"description"`
	DiscountType        enums.DiscountType `json:"discount_type"`
	DiscountValue       int64              `json:"discount_value"`
	MinOrderAmountPaise int64              `json:"min_order_amount_paise"`
	StartDate           time.Time          `json:"start_date"`
	EndDate             time.Time          `json:"end_date"`
	IsExpired           bool               `json:"is_expired"`
}

type Offer struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	Scope      enums.OfferScope `json:"scope"`
	Items      []uuid.UUID      `json:"items"`
	Percentage int              `json:"percentage"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	IsActive   bool             `json:"is_active"`
}

func NewCoupon(c *models.Coupon) Coupon {
	return Coupon{
		ID:                  c.ID,
		Code:                c.Code,
		Description:         c.Description,
		DiscountType:        c.DiscountType,
		DiscountValue:       c.DiscountValue,
		MinOrderAmountPaise: c.MinOrderAmountPaise,
		StartDate:           c.StartDate,
		EndDate:             c.EndDate,
		IsExpired:           c.IsExpired,
	}
}

func NewCoupons(coupons []models.Coupon) []Coupon {
	out := make([]Coupon, 0, len(coupons))
	for i := range coupons {
		out = append(out, NewCoupon(&coupons[i]))
	}
	return out
}

func NewOffer(o *models.Offer) Offer {
	return Offer{
		ID:         o.ID,
		Name:       o.Name,
		Scope:      o.Scope,
		Items:      o.RefIDs(),
		Percentage: o.Percentage,
		StartDate:  o.StartDate,
		EndDate:    o.EndDate,
		IsActive:   o.IsActive,
	}
}

func NewOffers(offers []models.Offer) []Offer {
	out := make([]Offer, 0, len(offers))
	for i := range offers {
		out = append(out, NewOffer(&offers[i]))
	}
	return out
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/enums"
)

// Coupon codes are stored upper-cased. DiscountValue is a percentage for
// percentage coupons and paise for fixed ones.
type Coupon struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                string             `gorm:"column:code;not null;uniqueIndex"`
	Description         string             `gorm:"column:description;not null;default:''"`
	DiscountType        enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue       int64              `gorm:"column:discount_value;not null"`
	MinOrderAmountPaise int64              `gorm:"column:min_order_amount_paise;not null;default:0"`
	StartDate           time.Time          `gorm:"column:start_date;not null"`
	EndDate             time.Time          `gorm:"column:end_date;not null"`
	IsExpired           bool               `gorm:"column:is_expired;not null;default:false"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ActiveAt reports whether the coupon window contains now and it is not expired.
func (c Coupon) ActiveAt(now time.Time) bool {
	return !c.IsExpired && !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// CouponRedemption records single use per (coupon, user).
type CouponRedemption struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *CouponRedemption) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Offer is a time-boxed percentage markdown. Scope says whether its items
// reference products or categories.
type Offer struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string           `gorm:"column:name;not null"`
	Scope      enums.OfferScope `gorm:"column:scope;not null"`
	Items      []OfferItem      `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE"`
	Percentage int              `gorm:"column:percentage;not null"`
	StartDate  time.Time        `gorm:"column:start_date;not null"`
	EndDate    time.Time        `gorm:"column:end_date;not null"`
	IsActive   bool             `gorm:"column:is_active;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// OfferItem is one product or category an offer covers.
type OfferItem struct {
	OfferID uuid.UUID `gorm:"column:offer_id;type:uuid;primaryKey"`
	RefID   uuid.UUID `gorm:"column:ref_id;type:uuid;primaryKey"`
}

func (OfferItem) TableName() string { return "offer_items" }

// NewOfferItems drops nil and repeated refs, keeping first-seen order.
func NewOfferItems(refs []uuid.UUID) []OfferItem {
	seen := make(map[uuid.UUID]struct{}, len(refs))
	items := make([]OfferItem, 0, len(refs))
	for _, ref := range refs {
		if ref == uuid.Nil {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		items = append(items, OfferItem{RefID: ref})
	}
	return items
}

func (o Offer) RefIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.RefID)
	}
	return ids
}

// Covers reports whether the offer applies to a variant of productID
// filed under categoryID.
func (o Offer) Covers(productID, categoryID uuid.UUID) bool {
	target := productID
	switch o.Scope {
	case enums.OfferScopeProduct:
	case enums.OfferScopeCategory:
		target = categoryID
	default:
		return false
	}
	for _, item := range o.Items {
		if item.RefID == target {
			return true
		}
	}
	return false
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

func (o Offer) LiveAt(now time.Time) bool {
	return o.IsActive && !now.Before(o.StartDate) && !now.After(o.EndDate)
}

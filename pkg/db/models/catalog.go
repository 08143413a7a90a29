package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	IsListed  bool      `gorm:"column:is_listed;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID  uuid.UUID `gorm:"column:category_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	IsListed    bool      `gorm:"column:is_listed;not null"`
	IsBlocked   bool      `gorm:"column:is_blocked;not null;default:false"`
	Category    *Category `gorm:"foreignKey:CategoryID"`
	Variants    []Variant `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Variant is the purchasable unit. Stock never goes below zero; every
// decrement goes through a conditional update.
type Variant struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID          uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SKU                string    `gorm:"column:sku;not null"`
	Size               string    `gorm:"column:size;not null"`
	Color              string    `gorm:"column:color;not null"`
	PricePaise         int64     `gorm:"column:price_paise;not null"`
	DiscountPricePaise *int64    `gorm:"column:discount_price_paise"`
	Stock              int       `gorm:"column:stock;not null;default:0"`
	IsBlocked          bool      `gorm:"column:is_blocked;not null;default:false"`
	Product            *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Variant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// EffectivePricePaise returns the offer price when one is active and lower
// than the list price.
func (v Variant) EffectivePricePaise() int64 {
	if v.DiscountPricePaise != nil && *v.DiscountPricePaise < v.PricePaise {
		return *v.DiscountPricePaise
	}
	return v.PricePaise
}

package dbtest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/types"
)

// VariantSeed describes a listed product with a single variant.
type VariantSeed struct {
	CategoryID  uuid.UUID
	ProductName string
	PricePaise  int64
	Stock       int
}

func MustCreateCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, IsListed: true}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func MustCreateVariant(t testing.TB, db *gorm.DB, seed VariantSeed) *models.Variant {
	t.Helper()
	if seed.CategoryID == uuid.Nil {
		seed.CategoryID = MustCreateCategory(t, db, "Shirts").ID
	}
	if seed.ProductName == "" {
		seed.ProductName = "Oxford Shirt"
	}
	product := &models.Product{CategoryID: seed.CategoryID, Name: seed.ProductName, IsListed: true}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	variant := &models.Variant{
		ProductID:  product.ID,
		SKU:        "SKU-" + uuid.NewString()[:8],
		Size:       "M",
		Color:      "Blue",
		PricePaise: seed.PricePaise,
		Stock:      seed.Stock,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return variant
}

func MustCreateAddress(t testing.TB, db *gorm.DB, userID uuid.UUID) *models.Address {
	t.Helper()
	address := &models.Address{
		UserID:     userID,
		Name:       "Asha Menon",
		Phone:      "9876543210",
		Line1:      "14 Marine Drive",
		City:       "Kochi",
		State:      "Kerala",
		PostalCode: "682031",
		Country:    "IN",
	}
	if err := db.Create(address).Error; err != nil {
		t.Fatalf("create address: %v", err)
	}
	return address
}

// MustFillCart creates the user's cart holding qty of each variant at its
// effective price.
func MustFillCart(t testing.TB, db *gorm.DB, userID uuid.UUID, lines map[*models.Variant]int) *models.Cart {
	t.Helper()
	cart := &models.Cart{UserID: userID}
	if err := db.Where("user_id = ?", userID).FirstOrCreate(cart).Error; err != nil {
		t.Fatalf("create cart: %v", err)
	}
	for variant, qty := range lines {
		price := variant.EffectivePricePaise()
		item := &models.CartItem{
			CartID:         cart.ID,
			VariantID:      variant.ID,
			Quantity:       qty,
			UnitPricePaise: price,
			LineTotalPaise: price * int64(qty),
		}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("create cart item: %v", err)
		}
	}
	return cart
}

func MustCreateCoupon(t testing.TB, db *gorm.DB, code string, kind enums.DiscountType, value, minOrderPaise int64) *models.Coupon {
	t.Helper()
	now := time.Now().UTC()
	coupon := &models.Coupon{
		Code:                code,
		DiscountType:        kind,
		DiscountValue:       value,
		MinOrderAmountPaise: minOrderPaise,
		StartDate:           now.Add(-24 * time.Hour),
		EndDate:             now.Add(24 * time.Hour),
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	return coupon
}

func MustFundWallet(t testing.TB, db *gorm.DB, userID uuid.UUID, balancePaise int64) *models.Wallet {
	t.Helper()
	wallet := &models.Wallet{UserID: userID, BalancePaise: balancePaise}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balancePaise > 0 {
		txn := &models.WalletTransaction{
			WalletID:          wallet.ID,
			UserID:            userID,
			Type:              enums.WalletTransactionTypeCredit,
			AmountPaise:       balancePaise,
			BalanceAfterPaise: balancePaise,
			Description:       "opening balance",
		}
		if err := db.Create(txn).Error; err != nil {
			t.Fatalf("create wallet transaction: %v", err)
		}
	}
	return wallet
}

func MustReloadVariant(t testing.TB, db *gorm.DB, id uuid.UUID) models.Variant {
	t.Helper()
	var variant models.Variant
	if err := db.First(&variant, "id = ?", id).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	return variant
}

func MustReloadWallet(t testing.TB, db *gorm.DB, userID uuid.UUID) models.Wallet {
	t.Helper()
	var wallet models.Wallet
	if err := db.First(&wallet, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("reload wallet: %v", err)
	}
	return wallet
}

// OrderSeed describes an already placed order. Lines are priced at the
// variant's effective price.
type OrderSeed struct {
	UserID              uuid.UUID
	Status              enums.OrderStatus
	PaymentMethod       enums.PaymentMethod
	PaymentStatus       enums.PaymentStatus
	CouponDiscountPaise int64
	Lines               []OrderLineSeed
}

type OrderLineSeed struct {
	Variant  *models.Variant
	Quantity int
}

func MustCreateOrder(t testing.TB, db *gorm.DB, seed OrderSeed) *models.Order {
	t.Helper()
	if seed.Status == "" {
		seed.Status = enums.OrderStatusProcessing
	}
	if seed.PaymentMethod == "" {
		seed.PaymentMethod = enums.PaymentMethodWallet
	}
	if seed.PaymentStatus == "" {
		seed.PaymentStatus = enums.PaymentStatusCompleted
	}
	order := &models.Order{
		OrderNumber:     "ORD-" + time.Now().UTC().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8]),
		UserID:          seed.UserID,
		Status:          seed.Status,
		PaymentMethod:   seed.PaymentMethod,
		PaymentStatus:   seed.PaymentStatus,
		ShippingAddress: types.ShippingAddress{Name: "Asha Menon", Line1: "14 Marine Drive", City: "Kochi", State: "Kerala", PostalCode: "682031", Country: "IN"},
		Version:         1,
	}
	for _, line := range seed.Lines {
		unit := line.Variant.EffectivePricePaise()
		final := unit * int64(line.Quantity)
		order.SubtotalPaise += final
		order.ProductDiscountPaise += (line.Variant.PricePaise - unit) * int64(line.Quantity)
		order.Items = append(order.Items, models.OrderItem{
			VariantID:           line.Variant.ID,
			ProductID:           line.Variant.ProductID,
			ProductName:         "Oxford Shirt",
			Size:                line.Variant.Size,
			Color:               line.Variant.Color,
			Quantity:            line.Quantity,
			UnitPricePaise:      line.Variant.PricePaise,
			FinalUnitPricePaise: unit,
			DiscountPaise:       (line.Variant.PricePaise - unit) * int64(line.Quantity),
			FinalPricePaise:     final,
			Status:              enums.ItemStatusActive,
			ReturnStatus:        enums.ReturnStatusNone,
		})
	}
	order.CouponDiscountPaise = seed.CouponDiscountPaise
	order.TotalPaise = order.SubtotalPaise - seed.CouponDiscountPaise
	order.PaymentAmountPaise = order.TotalPaise
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func MustReloadOrder(t testing.TB, db *gorm.DB, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	if err := db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}

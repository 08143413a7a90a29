package discounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
)

// CouponRepository persists coupons and their per-user redemptions.
type CouponRepository interface {
	WithTx(tx *gorm.DB) CouponRepository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context) ([]models.Coupon, error)
	ListAvailableForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Coupon, error)
	HasRedeemed(ctx context.Context, couponID, userID uuid.UUID) (bool, error)
	CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error
	ExpireEndedBefore(ctx context.Context, now time.Time) (int64, error)
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) WithTx(tx *gorm.DB) CouponRepository {
	if tx == nil {
		return r
	}
	return &couponRepository{db: tx}
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *couponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *couponRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Updates(updates).Error
}

func (r *couponRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Coupon{})
	return res.RowsAffected > 0, res.Error
}

func (r *couponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *couponRepository) ListAvailableForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Coupon, error) {
	redeemed := r.db.Model(&models.CouponRedemption{}).Select("coupon_id").Where("user_id = ?", userID)
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Where("is_expired = ?", false).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("id NOT IN (?)", redeemed).
		Order("min_order_amount_paise ASC").
		Find(&rows).Error
	return rows, err
}

func (r *couponRepository) HasRedeemed(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *couponRepository) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *couponRepository) ExpireEndedBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("is_expired = ? AND end_date < ?", false, now).
		Updates(map[string]any{"is_expired": true, "updated_at": now})
	return res.RowsAffected, res.Error
}

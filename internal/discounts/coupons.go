package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

// CouponService is the admin surface for coupons plus the customer listing.
type CouponService interface {
	Create(ctx context.Context, input CouponInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input CouponInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Coupon, error)
	ListAvailable(ctx context.Context, userID uuid.UUID) ([]models.Coupon, error)
	ExpireCoupons(ctx context.Context, now time.Time) (int64, error)
}

type CouponInput struct {
	Code                string
	Description         string
	DiscountType        enums.DiscountType
	DiscountValue       int64
	MinOrderAmountPaise int64
	StartDate           time.Time
	EndDate             time.Time
}

type couponService struct {
	repo CouponRepository
	now  func() time.Time
}

func NewCouponService(repo CouponRepository) (CouponService, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &couponService{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *couponService) Create(ctx context.Context, input CouponInput) (*models.Coupon, error) {
	input.Code = NormalizeCode(input.Code)
	if err := validateCoupon(input); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByCode(ctx, input.Code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon code")
	}
	if existing != nil {
		return nil, pkgerrors.Conflict(pkgerrors.ReasonDuplicateCouponCode, "coupon code already exists")
	}

	coupon := &models.Coupon{
		Code:                input.Code,
		Description:         strings.TrimSpace(input.Description),
		DiscountType:        input.DiscountType,
		DiscountValue:       input.DiscountValue,
		MinOrderAmountPaise: input.MinOrderAmountPaise,
		StartDate:           input.StartDate.UTC(),
		EndDate:             input.EndDate.UTC(),
		IsExpired:           input.EndDate.Before(s.now()),
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonDuplicateCouponCode, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	return coupon, nil
}

func (s *couponService) Update(ctx context.Context, id uuid.UUID, input CouponInput) (*models.Coupon, error) {
	input.Code = NormalizeCode(input.Code)
	if err := validateCoupon(input); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if input.Code != current.Code {
		clash, err := s.repo.FindByCode(ctx, input.Code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon code")
		}
		if clash != nil {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonDuplicateCouponCode, "coupon code already exists")
		}
	}

	updates := map[string]any{
		"code":                   input.Code,
		"description":            strings.TrimSpace(input.Description),
		"discount_type":          input.DiscountType,
		"discount_value":         input.DiscountValue,
		"min_order_amount_paise": input.MinOrderAmountPaise,
		"start_date":             input.StartDate.UTC(),
		"end_date":               input.EndDate.UTC(),
		"is_expired":             input.EndDate.Before(s.now()),
		"updated_at":             s.now(),
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonDuplicateCouponCode, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update coupon")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *couponService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coupon")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return nil
}

func (s *couponService) List(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return rows, nil
}

func (s *couponService) ListAvailable(ctx context.Context, userID uuid.UUID) ([]models.Coupon, error) {
	rows, err := s.repo.ListAvailableForUser(ctx, userID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list available coupons")
	}
	return rows, nil
}

// ExpireCoupons flags every coupon whose end date has passed.
func (s *couponService) ExpireCoupons(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireEndedBefore(ctx, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expire coupons")
	}
	return n, nil
}

func validateCoupon(input CouponInput) error {
	if input.Code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", input.DiscountType))
	}
	if input.DiscountValue <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.DiscountType == enums.DiscountTypePercentage && input.DiscountValue > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.DiscountValue >= input.MinOrderAmountPaise {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value must be less than the minimum order amount")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end dates are required")
	}
	if !input.StartDate.Before(input.EndDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date")
	}
	return nil
}

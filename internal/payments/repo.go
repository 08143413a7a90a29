package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
)

// openStatuses are the states a payment can still be verified, cancelled or
// failed from.
var openStatuses = []enums.GatewayPaymentStatus{
	enums.GatewayPaymentStatusCreated,
	enums.GatewayPaymentStatusRetryPending,
}

// Repository persists gateway payment correlation records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByCheckoutID(ctx context.Context, userID uuid.UUID, checkoutID string) (*models.Payment, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	TransitionOpen(ctx context.Context, paymentID uuid.UUID, to enums.GatewayPaymentStatus, updates map[string]any) (bool, error)
	LinkOrder(ctx context.Context, paymentID, orderID uuid.UUID) error
	AttachGatewayPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error)
	ExpireOpenBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByCheckoutID(ctx context.Context, userID uuid.UUID, checkoutID string) (*models.Payment, error) {
	return r.first(ctx, "user_id = ? AND checkout_id = ?", userID, checkoutID)
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	return r.first(ctx, "gateway_order_id = ?", gatewayOrderID)
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where(query, args...).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// TransitionOpen moves a created or retry-pending payment to status. It
// reports false when the payment already left the open states.
func (r *repository) TransitionOpen(ctx context.Context, paymentID uuid.UUID, to enums.GatewayPaymentStatus, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		values[k] = v
	}
	values["status"] = to
	values["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", paymentID, openStatuses).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) LinkOrder(ctx context.Context, paymentID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]any{"order_id": orderID, "updated_at": time.Now().UTC()}).Error
}

// AttachGatewayPayment records the gateway payment id on a still-open intent.
// The first id wins.
func (r *repository) AttachGatewayPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("gateway_order_id = ? AND status IN ? AND gateway_payment_id IS NULL", gatewayOrderID, openStatuses).
		Updates(map[string]any{"gateway_payment_id": gatewayPaymentID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpireOpenBefore leaves alone intents the gateway has already attached a
// payment to; those are settled by verify or the webhook, never by age.
func (r *repository) ExpireOpenBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status IN ? AND created_at < ? AND gateway_payment_id IS NULL", openStatuses, cutoff.UTC()).
		Updates(map[string]any{
			"status":         enums.GatewayPaymentStatusCancelled,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

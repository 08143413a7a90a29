package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/internal/address"
	"github.com/kartwise/storefront-backend/internal/checkout"
	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
	"github.com/kartwise/storefront-backend/pkg/razorpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway creates orders on the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, input razorpay.CreateOrderInput) (*razorpay.Order, error)
	KeyID() string
}

type quoter interface {
	Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*checkout.Summary, error)
	CommitOnlineOrder(ctx context.Context, tx *gorm.DB, input checkout.PlaceOrderInput, payment *models.Payment) (*models.Order, error)
}

// Service adapts the payment gateway to order placement. The order row is
// written only after the checkout signature verifies.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	Verify(ctx context.Context, input VerifyInput) (*models.Order, error)
	Cancel(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error
	MarkRetryPending(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error
	MarkFailedByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) (bool, error)
	RecordCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error)
	ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error)
}

type CreateIntentInput struct {
	UserID     uuid.UUID
	AddressID  uuid.UUID
	CouponCode string
}

// Intent is handed to the client-side checkout widget.
type Intent struct {
	CheckoutID     string `json:"checkout_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	AmountPaise    int64  `json:"amount_paise"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
}

type VerifyInput struct {
	UserID           uuid.UUID
	CheckoutID       string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type ServiceParams struct {
	Tx        txRunner
	Repo      Repository
	Checkout  quoter
	Addresses address.Service
	Gateway   Gateway
	Outbox    outbox.Emitter
	Config    config.PaymentConfig
	Currency  string
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	repo      Repository
	checkout  quoter
	addresses address.Service
	gateway   Gateway
	outbox    outbox.Emitter
	cfg       config.PaymentConfig
	currency  string
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Checkout == nil:
		return nil, fmt.Errorf("checkout service required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address service required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case strings.TrimSpace(params.Config.KeySecret) == "":
		return nil, fmt.Errorf("payment key secret required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "INR"
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:        params.Tx,
		repo:      params.Repo,
		checkout:  params.Checkout,
		addresses: params.Addresses,
		gateway:   params.Gateway,
		outbox:    params.Outbox,
		cfg:       params.Config,
		currency:  currency,
		logg:      logg,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := s.addresses.GetForUser(ctx, nil, input.AddressID, input.UserID); err != nil {
		return nil, err
	}
	summary, err := s.checkout.Quote(ctx, input.UserID, input.CouponCode)
	if err != nil {
		return nil, err
	}

	checkoutID := "chk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderInput{
		AmountPaise: summary.FinalTotalPaise,
		Currency:    s.currency,
		Receipt:     checkoutID,
		Notes:       map[string]string{"user_id": input.UserID.String()},
	})
	if err != nil {
		return nil, pkgerrors.External(pkgerrors.ReasonGatewayUnavailable, err, "payment gateway unavailable")
	}

	payment := &models.Payment{
		UserID:         input.UserID,
		CheckoutID:     checkoutID,
		GatewayOrderID: gwOrder.ID,
		AmountPaise:    summary.FinalTotalPaise,
		Currency:       s.currency,
		Status:         enums.GatewayPaymentStatusCreated,
		AddressID:      input.AddressID,
	}
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		payment.CouponCode = &code
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment intent")
	}

	return &Intent{
		CheckoutID:     checkoutID,
		GatewayOrderID: gwOrder.ID,
		AmountPaise:    payment.AmountPaise,
		Currency:       payment.Currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.CheckoutID) == "" || strings.TrimSpace(input.GatewayOrderID) == "" || strings.TrimSpace(input.GatewayPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id, gateway order id and gateway payment id are required")
	}

	payment, err := s.load(ctx, s.repo, input.UserID, input.CheckoutID)
	if err != nil {
		return nil, err
	}
	if payment.GatewayOrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order does not match checkout")
	}
	if err := openOrProcessed(payment); err != nil {
		return nil, err
	}

	if !razorpay.VerifyPaymentSignature(s.cfg.KeySecret, input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		if err := s.fail(ctx, payment, &input.GatewayPaymentID, "signature verification failed"); err != nil {
			s.logg.Error(ctx, "record failed payment", err)
		}
		return nil, pkgerrors.New(pkgerrors.CodeVerification, "payment signature mismatch").
			WithReason(pkgerrors.ReasonSignatureInvalid)
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		gatewayPaymentID := input.GatewayPaymentID
		ok, err := repo.TransitionOpen(ctx, payment.ID, enums.GatewayPaymentStatusCompleted, map[string]any{
			"gateway_payment_id": gatewayPaymentID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payment")
		}
		if !ok {
			return pkgerrors.Conflict(pkgerrors.ReasonPaymentProcessed, "payment already processed")
		}
		payment.GatewayPaymentID = &gatewayPaymentID

		placeInput := checkout.PlaceOrderInput{UserID: payment.UserID, AddressID: payment.AddressID}
		if payment.CouponCode != nil {
			placeInput.CouponCode = *payment.CouponCode
		}
		order, err = s.checkout.CommitOnlineOrder(ctx, tx, placeInput, payment)
		if err != nil {
			return err
		}

		if err := repo.LinkOrder(ctx, payment.ID, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link payment to order")
		}
		payment.OrderID = &order.ID
		return nil
	})
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) || pkgerrors.ReasonOf(err) != pkgerrors.ReasonPaymentProcessed {
			// The customer has paid but no order exists; keep the reason for reconciliation.
			if ferr := s.fail(ctx, payment, &input.GatewayPaymentID, "order commit failed: "+err.Error()); ferr != nil {
				s.logg.Error(ctx, "record failed payment", ferr)
			}
		}
		return nil, err
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error {
	return s.closeOpen(ctx, userID, checkoutID, enums.GatewayPaymentStatusCancelled, reason, "checkout closed by customer")
}

func (s *service) MarkRetryPending(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error {
	return s.closeOpen(ctx, userID, checkoutID, enums.GatewayPaymentStatusRetryPending, reason, "gateway reported a failure")
}

func (s *service) closeOpen(ctx context.Context, userID uuid.UUID, checkoutID string, to enums.GatewayPaymentStatus, reason, fallback string) error {
	payment, err := s.load(ctx, s.repo, userID, checkoutID)
	if err != nil {
		return err
	}
	if err := openOrProcessed(payment); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = fallback
	}
	ok, err := s.repo.TransitionOpen(ctx, payment.ID, to, map[string]any{"failure_reason": reason})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
	}
	if !ok {
		return pkgerrors.Conflict(pkgerrors.ReasonPaymentProcessed, "payment already processed")
	}
	return nil
}

// MarkFailedByGatewayOrder records a gateway-reported failure. It reports
// false when the payment is unknown or already settled.
func (s *service) MarkFailedByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) (bool, error) {
	payment, err := s.repo.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil {
		return false, nil
	}
	var paymentRef *string
	if id := strings.TrimSpace(gatewayPaymentID); id != "" {
		paymentRef = &id
	}
	var changed bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		changed, err = s.failTx(ctx, tx, payment, paymentRef, reason)
		return err
	})
	return changed, err
}

// RecordCapture notes that the gateway captured money against an open intent,
// which keeps the intent from expiring before the client callback arrives.
func (s *service) RecordCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error) {
	gatewayOrderID, gatewayPaymentID = strings.TrimSpace(gatewayOrderID), strings.TrimSpace(gatewayPaymentID)
	if gatewayOrderID == "" || gatewayPaymentID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "gateway order and payment ids are required")
	}
	attached, err := s.repo.AttachGatewayPayment(ctx, gatewayOrderID, gatewayPaymentID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record gateway capture")
	}
	return attached, nil
}

func (s *service) ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error) {
	return NewIntentExpirer(s.repo, s.cfg.IntentTTL).ExpireStaleIntents(ctx, now)
}

func (s *service) load(ctx context.Context, repo Repository, userID uuid.UUID, checkoutID string) (*models.Payment, error) {
	payment, err := repo.FindByCheckoutID(ctx, userID, strings.TrimSpace(checkoutID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.NotFound(pkgerrors.ReasonPaymentNotFound, "payment not found")
	}
	return payment, nil
}

// fail marks the payment failed in its own transaction so the audit record
// survives the caller's rollback.
func (s *service) fail(ctx context.Context, payment *models.Payment, gatewayPaymentID *string, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.failTx(ctx, tx, payment, gatewayPaymentID, reason)
		return err
	})
}

func (s *service) failTx(ctx context.Context, tx *gorm.DB, payment *models.Payment, gatewayPaymentID *string, reason string) (bool, error) {
	updates := map[string]any{"failure_reason": reason}
	if gatewayPaymentID != nil {
		updates["gateway_payment_id"] = *gatewayPaymentID
	}
	ok, err := s.repo.WithTx(tx).TransitionOpen(ctx, payment.ID, enums.GatewayPaymentStatusFailed, updates)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark payment failed")
	}
	if !ok {
		return false, nil
	}
	return true, s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.PaymentFailedEvent{
			PaymentID:      payment.ID,
			UserID:         payment.UserID,
			GatewayOrderID: payment.GatewayOrderID,
			Reason:         reason,
		},
	})
}

func openOrProcessed(payment *models.Payment) error {
	switch payment.Status {
	case enums.GatewayPaymentStatusCreated, enums.GatewayPaymentStatusRetryPending:
		return nil
	case enums.GatewayPaymentStatusCompleted:
		return pkgerrors.Conflict(pkgerrors.ReasonPaymentProcessed, "payment already processed")
	default:
		return pkgerrors.StateConflict(pkgerrors.ReasonInvalidTransition, "payment is "+string(payment.Status))
	}
}

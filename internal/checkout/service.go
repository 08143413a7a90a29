package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/internal/address"
	"github.com/kartwise/storefront-backend/internal/cart"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/internal/inventory"
	"github.com/kartwise/storefront-backend/internal/orders"
	"github.com/kartwise/storefront-backend/internal/wallet"
	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/metrics"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service assembles orders from the user's cart.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	CommitOnlineOrder(ctx context.Context, tx *gorm.DB, input PlaceOrderInput, payment *models.Payment) (*models.Order, error)
	Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*Summary, error)
}

// PlaceOrderInput carries the customer's checkout choices. ExpectedTotalPaise
// is the amount the client displayed; when set it must match the computed total.
type PlaceOrderInput struct {
	UserID             uuid.UUID
	AddressID          uuid.UUID
	PaymentMethod      enums.PaymentMethod
	CouponCode         string
	ExpectedTotalPaise *int64
}

// Summary is the read-only checkout preview.
type Summary struct {
	*discounts.Quote
	CODAvailable  bool  `json:"cod_available"`
	CODLimitPaise int64 `json:"cod_limit_paise"`
}

type ServiceParams struct {
	Tx        txRunner
	Cart      cart.Service
	Addresses address.Service
	Catalog   inventory.Catalog
	Ledger    inventory.Ledger
	Resolver  discounts.Resolver
	Coupons   discounts.CouponRepository
	Wallet    wallet.Service
	Orders    orders.Repository
	Outbox    outbox.Emitter
	Config    config.CheckoutConfig
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	cart      cart.Service
	addresses address.Service
	catalog   inventory.Catalog
	ledger    inventory.Ledger
	resolver  discounts.Resolver
	coupons   discounts.CouponRepository
	wallet    wallet.Service
	orders    orders.Repository
	outbox    outbox.Emitter
	cfg       config.CheckoutConfig
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order assembler.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address service required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Resolver == nil:
		return nil, fmt.Errorf("discount resolver required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon repository required")
	case params.Wallet == nil:
		return nil, fmt.Errorf("wallet service required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:        params.Tx,
		cart:      params.Cart,
		addresses: params.Addresses,
		catalog:   params.Catalog,
		ledger:    params.Ledger,
		resolver:  params.Resolver,
		coupons:   params.Coupons,
		wallet:    params.Wallet,
		orders:    params.Orders,
		outbox:    params.Outbox,
		cfg:       params.Config,
		metrics:   params.Metrics,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// PlaceOrder commits COD and wallet orders. Online orders are committed by
// the payment adapter once the gateway signature is verified.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.PaymentMethod == enums.PaymentMethodOnline {
		return nil, pkgerrors.Validation(pkgerrors.ReasonUnsupportedPayMethod, "online payments are placed through payment verification")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.assemble(ctx, tx, input, nil)
		return err
	})
	if err != nil {
		s.metrics.IncRejected(string(pkgerrors.ReasonOf(err)))
		return nil, err
	}
	s.placed(ctx, order)
	return order, nil
}

// CommitOnlineOrder runs the assembly inside the caller's transaction with a
// verified gateway payment.
func (s *service) CommitOnlineOrder(ctx context.Context, tx *gorm.DB, input PlaceOrderInput, payment *models.Payment) (*models.Order, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verified payment required")
	}
	input.PaymentMethod = enums.PaymentMethodOnline
	if err := validateInput(input); err != nil {
		return nil, err
	}
	order, err := s.assemble(ctx, tx, input, payment)
	if err != nil {
		s.metrics.IncRejected(string(pkgerrors.ReasonOf(err)))
		return nil, err
	}
	s.placed(ctx, order)
	return order, nil
}

func (s *service) Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*Summary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	c, err := s.cart.LoadForCheckout(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.liveLines(ctx, nil, c)
	if err != nil {
		return nil, err
	}
	quote, err := s.resolve(ctx, nil, userID, lines, couponCode)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Quote:         quote,
		CODAvailable:  quote.FinalTotalPaise <= s.cfg.CODLimitPaise,
		CODLimitPaise: s.cfg.CODLimitPaise,
	}, nil
}

func (s *service) assemble(ctx context.Context, tx *gorm.DB, input PlaceOrderInput, payment *models.Payment) (*models.Order, error) {
	c, err := s.cart.LoadForCheckout(ctx, tx, input.UserID)
	if err != nil {
		return nil, err
	}
	addr, err := s.addresses.GetForUser(ctx, tx, input.AddressID, input.UserID)
	if err != nil {
		return nil, err
	}
	lines, err := s.liveLines(ctx, tx, c)
	if err != nil {
		return nil, err
	}
	quote, err := s.resolve(ctx, tx, input.UserID, lines, input.CouponCode)
	if err != nil {
		return nil, err
	}

	total := quote.FinalTotalPaise
	if input.ExpectedTotalPaise != nil && *input.ExpectedTotalPaise != total {
		return nil, amountMismatch(*input.ExpectedTotalPaise, total)
	}

	now := s.now()
	order := &models.Order{
		OrderNumber:          NewOrderNumber(now),
		UserID:               input.UserID,
		Status:               enums.OrderStatusProcessing,
		PaymentMethod:        input.PaymentMethod,
		PaymentStatus:        enums.PaymentStatusPending,
		PaymentAmountPaise:   total,
		SubtotalPaise:        quote.SubtotalPaise,
		ProductDiscountPaise: quote.ProductDiscountPaise,
		CouponDiscountPaise:  quote.CouponDiscountPaise,
		ShippingPaise:        quote.ShippingPaise,
		TotalPaise:           total,
		ShippingAddress:      addr.Snapshot(),
		Version:              1,
	}
	if quote.Coupon != nil {
		order.CouponID = &quote.Coupon.ID
		code := quote.Coupon.Code
		order.CouponCode = &code
	}

	switch input.PaymentMethod {
	case enums.PaymentMethodCOD:
		if total > s.cfg.CODLimitPaise {
			return nil, pkgerrors.Validation(pkgerrors.ReasonCODLimitExceeded,
				fmt.Sprintf("cash on delivery is not available for orders above %d paise", s.cfg.CODLimitPaise)).
				WithDetails(map[string]any{"cod_limit_paise": s.cfg.CODLimitPaise, "total_paise": total})
		}
	case enums.PaymentMethodWallet:
		if _, err := s.wallet.Debit(ctx, tx, wallet.EntryInput{
			UserID:      input.UserID,
			AmountPaise: total,
			Description: fmt.Sprintf("Payment for order %s", order.OrderNumber),
			OrderRef:    order.OrderNumber,
		}); err != nil {
			return nil, err
		}
		order.PaymentStatus = enums.PaymentStatusCompleted
	case enums.PaymentMethodOnline:
		if payment.AmountPaise != total {
			return nil, amountMismatch(payment.AmountPaise, total)
		}
		order.PaymentStatus = enums.PaymentStatusCompleted
		order.GatewayPaymentID = payment.GatewayPaymentID
	}

	order.Items = make([]models.OrderItem, 0, len(lines))
	for i, line := range lines {
		priced := quote.Items[i]
		name := ""
		if line.Variant.Product != nil {
			name = line.Variant.Product.Name
		}
		order.Items = append(order.Items, models.OrderItem{
			VariantID:           line.Variant.ID,
			ProductID:           line.Variant.ProductID,
			ProductName:         name,
			Size:                line.Variant.Size,
			Color:               line.Variant.Color,
			Quantity:            line.Quantity,
			UnitPricePaise:      priced.UnitPricePaise,
			FinalUnitPricePaise: priced.EffectiveUnitPricePaise,
			DiscountPaise:       priced.ItemDiscountPaise,
			FinalPricePaise:     priced.LineTotalPaise,
			Status:              enums.ItemStatusActive,
			ReturnStatus:        enums.ReturnStatusNone,
		})
	}
	if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	for _, line := range lines {
		if err := s.ledger.Reserve(ctx, tx, line.Variant.ID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.cart.Clear(ctx, tx, c.ID); err != nil {
		return nil, err
	}

	if quote.Coupon != nil {
		if err := s.coupons.WithTx(tx).CreateRedemption(ctx, &models.CouponRedemption{
			CouponID: quote.Coupon.ID,
			UserID:   input.UserID,
			OrderID:  order.ID,
		}); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Conflict(pkgerrors.ReasonCouponAlreadyUsed, "coupon already used")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record coupon redemption")
		}
	}

	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: input.UserID, Role: enums.RoleCustomer.String()},
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			PaymentMethod: order.PaymentMethod,
			TotalPaise:    order.TotalPaise,
			DiscountPaise: order.TotalDiscountPaise(),
			ItemCount:     itemCount,
			CouponCode:    order.CouponCode,
			PlacedAt:      now,
		},
	}); err != nil {
		return nil, err
	}
	return order, nil
}

// liveLines re-reads every cart variant and checks it can still be sold in
// the requested quantity.
func (s *service) liveLines(ctx context.Context, tx *gorm.DB, c *models.Cart) ([]discounts.LineInput, error) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.VariantID)
	}
	variants, err := s.catalog.WithTx(tx).GetVariants(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]discounts.LineInput, 0, len(c.Items))
	for _, item := range c.Items {
		variant := variants[item.VariantID]
		if !inventory.IsAvailable(variant) {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonProductUnavailable, "a product in your cart is no longer available").
				WithDetails(map[string]any{"variant_id": item.VariantID})
		}
		if variant.Stock < item.Quantity {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"variant_id": variant.ID,
					"available":  variant.Stock,
					"requested":  item.Quantity,
				})
		}
		lines = append(lines, discounts.LineInput{Variant: variant, Quantity: item.Quantity})
	}
	return lines, nil
}

func (s *service) resolve(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lines []discounts.LineInput, couponCode string) (*discounts.Quote, error) {
	return s.resolver.Resolve(ctx, tx, discounts.ResolveInput{
		UserID:      userID,
		Items:       lines,
		CouponCode:  couponCode,
		ShippingFor: s.cfg.ShippingFor,
		Now:         s.now(),
	})
}

func (s *service) placed(ctx context.Context, order *models.Order) {
	s.metrics.IncPlaced(string(order.PaymentMethod))
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number":   order.OrderNumber,
		"payment_method": order.PaymentMethod,
		"total_paise":    order.TotalPaise,
	}), "order placed")
}

func validateInput(input PlaceOrderInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AddressID == uuid.Nil {
		return pkgerrors.Validation(pkgerrors.ReasonAddressNotFound, "address id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.Validation(pkgerrors.ReasonUnsupportedPayMethod,
			fmt.Sprintf("payment method %q is not supported", strings.TrimSpace(string(input.PaymentMethod))))
	}
	return nil
}

func amountMismatch(expected, actual int64) error {
	return pkgerrors.Conflict(pkgerrors.ReasonAmountMismatch, "order total changed, please review your cart").
		WithDetails(map[string]any{"expected_paise": expected, "total_paise": actual})
}

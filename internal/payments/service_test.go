package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/internal/address"
	"github.com/kartwise/storefront-backend/internal/cart"
	"github.com/kartwise/storefront-backend/internal/checkout"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/internal/inventory"
	"github.com/kartwise/storefront-backend/internal/orders"
	"github.com/kartwise/storefront-backend/internal/wallet"
	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/db/dbtest"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/razorpay"
)

const testKeySecret = "rzp_secret_test"

type fakeGateway struct {
	err    error
	orders []razorpay.CreateOrderInput
}

func (f *fakeGateway) CreateOrder(_ context.Context, input razorpay.CreateOrderInput) (*razorpay.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, input)
	return &razorpay.Order{ID: "order_" + input.Receipt, AmountPaise: input.AmountPaise, Currency: input.Currency, Status: "created"}, nil
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	svc     Service
	conn    *gorm.DB
	gateway *fakeGateway
	emitter *recordingEmitter
	userID  uuid.UUID
	addr    *models.Address
	variant *models.Variant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.FromConn(conn)
	catalog := inventory.NewCatalog(conn)
	emitter := &recordingEmitter{}

	cartSvc, err := cart.NewService(cart.NewRepository(conn), catalog, 10)
	require.NoError(t, err)
	addresses, err := address.NewService(address.NewRepository(conn))
	require.NoError(t, err)
	coupons := discounts.NewCouponRepository(conn)
	resolver, err := discounts.NewResolver(coupons)
	require.NoError(t, err)
	wallets, err := wallet.NewService(client, wallet.NewRepository(conn), nil)
	require.NoError(t, err)
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:        client,
		Cart:      cartSvc,
		Addresses: addresses,
		Catalog:   catalog,
		Ledger:    inventory.NewLedger(conn),
		Resolver:  resolver,
		Coupons:   coupons,
		Wallet:    wallets,
		Orders:    orders.NewRepository(conn),
		Outbox:    emitter,
		Config:    config.CheckoutConfig{CODLimitPaise: 100000, MaxQtyPerItem: 10},
	})
	require.NoError(t, err)

	gateway := &fakeGateway{}
	svc, err := NewService(ServiceParams{
		Tx:        client,
		Repo:      NewRepository(conn),
		Checkout:  checkoutSvc,
		Addresses: addresses,
		Gateway:   gateway,
		Outbox:    emitter,
		Config:    config.PaymentConfig{KeySecret: testKeySecret, IntentTTL: 30 * time.Minute},
	})
	require.NoError(t, err)

	userID := uuid.New()
	variant := dbtest.MustCreateVariant(t, conn, dbtest.VariantSeed{PricePaise: 250000, Stock: 3})
	dbtest.MustFillCart(t, conn, userID, map[*models.Variant]int{variant: 1})
	return &fixture{
		svc:     svc,
		conn:    conn,
		gateway: gateway,
		emitter: emitter,
		userID:  userID,
		addr:    dbtest.MustCreateAddress(t, conn, userID),
		variant: variant,
	}
}

func (f *fixture) reloadPayment(t *testing.T, checkoutID string) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "checkout_id = ?", checkoutID).Error)
	return payment
}

func TestCreateIntentStoresPaymentWithoutOrder(t *testing.T) {
	f := newFixture(t)

	intent, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(250000), intent.AmountPaise)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "rzp_test_key", intent.KeyID)
	require.Len(t, f.gateway.orders, 1)
	assert.Equal(t, intent.CheckoutID, f.gateway.orders[0].Receipt)

	payment := f.reloadPayment(t, intent.CheckoutID)
	assert.Equal(t, enums.GatewayPaymentStatusCreated, payment.Status)
	assert.Equal(t, intent.GatewayOrderID, payment.GatewayOrderID)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateIntentGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("502 bad gateway")

	_, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, pkgerrors.ReasonGatewayUnavailable, pkgerrors.ReasonOf(err))
}

func TestVerifyValidSignatureCommitsOrder(t *testing.T) {
	f := newFixture(t)
	intent, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.NoError(t, err)

	input := VerifyInput{
		UserID:           f.userID,
		CheckoutID:       intent.CheckoutID,
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: "pay_MbC9b1",
		Signature:        razorpay.Sign(testKeySecret, []byte(intent.GatewayOrderID+"|pay_MbC9b1")),
	}
	order, err := f.svc.Verify(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodOnline, order.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, int64(250000), order.TotalPaise)

	payment := f.reloadPayment(t, intent.CheckoutID)
	assert.Equal(t, enums.GatewayPaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.OrderID)
	assert.Equal(t, order.ID, *payment.OrderID)
	assert.Equal(t, 2, dbtest.MustReloadVariant(t, f.conn, f.variant.ID).Stock)

	_, err = f.svc.Verify(context.Background(), input)
	assert.Equal(t, pkgerrors.ReasonPaymentProcessed, pkgerrors.ReasonOf(err))
}

func TestVerifyInvalidSignatureMarksFailed(t *testing.T) {
	f := newFixture(t)
	intent, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), VerifyInput{
		UserID:           f.userID,
		CheckoutID:       intent.CheckoutID,
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: "pay_forged",
		Signature:        "deadbeef",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVerification))
	assert.Equal(t, pkgerrors.ReasonSignatureInvalid, pkgerrors.ReasonOf(err))

	payment := f.reloadPayment(t, intent.CheckoutID)
	assert.Equal(t, enums.GatewayPaymentStatusFailed, payment.Status)
	assert.Nil(t, payment.OrderID)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventPaymentFailed, f.emitter.events[0].EventType)
}

func TestCancelAndRetryPending(t *testing.T) {
	f := newFixture(t)
	intent, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRetryPending(context.Background(), f.userID, intent.CheckoutID, "card declined"))
	payment := f.reloadPayment(t, intent.CheckoutID)
	assert.Equal(t, enums.GatewayPaymentStatusRetryPending, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, "card declined", *payment.FailureReason)

	require.NoError(t, f.svc.Cancel(context.Background(), f.userID, intent.CheckoutID, ""))
	assert.Equal(t, enums.GatewayPaymentStatusCancelled, f.reloadPayment(t, intent.CheckoutID).Status)

	err = f.svc.Cancel(context.Background(), f.userID, intent.CheckoutID, "")
	assert.Equal(t, pkgerrors.ReasonInvalidTransition, pkgerrors.ReasonOf(err))

	err = f.svc.Cancel(context.Background(), uuid.New(), intent.CheckoutID, "")
	assert.Equal(t, pkgerrors.ReasonPaymentNotFound, pkgerrors.ReasonOf(err))
}

func TestMarkFailedByGatewayOrder(t *testing.T) {
	f := newFixture(t)
	intent, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.NoError(t, err)

	changed, err := f.svc.MarkFailedByGatewayOrder(context.Background(), intent.GatewayOrderID, "pay_1", "BAD_REQUEST_ERROR")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.svc.MarkFailedByGatewayOrder(context.Background(), intent.GatewayOrderID, "pay_1", "BAD_REQUEST_ERROR")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.svc.MarkFailedByGatewayOrder(context.Background(), "order_unknown", "", "")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestExpireStaleIntents(t *testing.T) {
	f := newFixture(t)
	intent, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.NoError(t, err)

	expired, err := f.svc.ExpireStaleIntents(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, expired)

	expired, err = f.svc.ExpireStaleIntents(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
	assert.Equal(t, enums.GatewayPaymentStatusCancelled, f.reloadPayment(t, intent.CheckoutID).Status)
}

func TestExpireStaleIntentsSkipsCapturedPayments(t *testing.T) {
	f := newFixture(t)
	intent, err := f.svc.CreateIntent(context.Background(), CreateIntentInput{UserID: f.userID, AddressID: f.addr.ID})
	require.NoError(t, err)

	attached, err := f.svc.RecordCapture(context.Background(), intent.GatewayOrderID, "pay_inflight")
	require.NoError(t, err)
	assert.True(t, attached)
	attached, err = f.svc.RecordCapture(context.Background(), intent.GatewayOrderID, "pay_other")
	require.NoError(t, err)
	assert.False(t, attached, "first gateway payment id wins")

	expired, err := f.svc.ExpireStaleIntents(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, expired)
	payment := f.reloadPayment(t, intent.CheckoutID)
	assert.Equal(t, enums.GatewayPaymentStatusCreated, payment.Status)
	require.NotNil(t, payment.GatewayPaymentID)
	assert.Equal(t, "pay_inflight", *payment.GatewayPaymentID)
}

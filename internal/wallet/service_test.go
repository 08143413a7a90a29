package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/db/dbtest"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/pagination"
)

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingEmitter) {
	t.Helper()
	conn := dbtest.Open(t)
	emitter := &recordingEmitter{}
	svc, err := NewService(db.FromConn(conn), NewRepository(conn), emitter)
	require.NoError(t, err)
	return svc, conn, emitter
}

func TestDebitInsufficientBalance(t *testing.T) {
	svc, conn, _ := newTestService(t)
	userID := uuid.New()
	dbtest.MustFundWallet(t, conn, userID, 20000)

	_, err := svc.Debit(context.Background(), nil, EntryInput{UserID: userID, AmountPaise: 50000, Description: "order payment"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, pkgerrors.ReasonInsufficientBalance, pkgerrors.ReasonOf(err))

	assert.Equal(t, int64(20000), dbtest.MustReloadWallet(t, conn, userID).BalancePaise)
	var count int64
	require.NoError(t, conn.Model(&models.WalletTransaction{}).Where("type = ?", enums.WalletTransactionTypeDebit).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDebitAndCreditKeepLogBalanced(t *testing.T) {
	svc, conn, emitter := newTestService(t)
	userID := uuid.New()
	dbtest.MustFundWallet(t, conn, userID, 60000)

	txn, err := svc.Debit(context.Background(), nil, EntryInput{UserID: userID, AmountPaise: 50000, Description: "order payment", OrderRef: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), txn.BalanceAfterPaise)
	assert.Empty(t, emitter.events)

	txn, err = svc.Credit(context.Background(), nil, EntryInput{UserID: userID, AmountPaise: 10800, Description: "refund", OrderRef: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(20800), txn.BalanceAfterPaise)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, enums.EventWalletCredited, emitter.events[0].EventType)

	rec, err := svc.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced)
	assert.Equal(t, int64(20800), rec.BalancePaise)
	assert.Equal(t, int64(70800), rec.CreditsPaise)
	assert.Equal(t, int64(50000), rec.DebitsPaise)
}

func TestCreditCreatesWalletLazily(t *testing.T) {
	svc, conn, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.Credit(context.Background(), nil, EntryInput{UserID: userID, AmountPaise: 500, Description: "goodwill"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), dbtest.MustReloadWallet(t, conn, userID).BalancePaise)
}

func TestDebitRollsBackWithCallerTransaction(t *testing.T) {
	svc, conn, _ := newTestService(t)
	userID := uuid.New()
	dbtest.MustFundWallet(t, conn, userID, 10000)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(context.Background(), tx, EntryInput{UserID: userID, AmountPaise: 4000, Description: "order payment"})
		require.NoError(t, err)
		return assert.AnError
	})

	assert.Equal(t, int64(10000), dbtest.MustReloadWallet(t, conn, userID).BalancePaise)
	rec, err := svc.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced)
}

func TestEntryValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Credit(context.Background(), nil, EntryInput{UserID: uuid.New(), AmountPaise: 0, Description: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Debit(context.Background(), nil, EntryInput{AmountPaise: 10, Description: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Debit(context.Background(), nil, EntryInput{UserID: uuid.New(), AmountPaise: 10})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetWalletPaginates(t *testing.T) {
	svc, conn, _ := newTestService(t)
	userID := uuid.New()
	dbtest.MustFundWallet(t, conn, userID, 1000)
	for i := 0; i < 3; i++ {
		_, err := svc.Credit(context.Background(), nil, EntryInput{UserID: userID, AmountPaise: 100, Description: "refund"})
		require.NoError(t, err)
	}

	view, err := svc.GetWallet(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1300), view.BalancePaise)
	assert.Len(t, view.Transactions, 2)
	require.NotEmpty(t, view.NextCursor)

	next, err := svc.GetWallet(context.Background(), userID, pagination.Params{Limit: 2, Cursor: view.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Transactions, 2)
	assert.Empty(t, next.NextCursor)
}

func TestGetWalletForNewUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	view, err := svc.GetWallet(context.Background(), uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Zero(t, view.BalancePaise)
	assert.Empty(t, view.Transactions)
}

// vanishingRepo reports no wallet once the balance has been moved.
type vanishingRepo struct {
	Repository
}

func (r vanishingRepo) WithTx(tx *gorm.DB) Repository {
	return vanishingRepo{Repository: r.Repository.WithTx(tx)}
}

func (vanishingRepo) FindByUser(context.Context, uuid.UUID) (*models.Wallet, error) {
	return nil, nil
}

func TestCreditFailsWhenWalletMissingAfterUpdate(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(db.FromConn(conn), vanishingRepo{Repository: NewRepository(conn)}, nil)
	require.NoError(t, err)
	userID := uuid.New()
	dbtest.MustFundWallet(t, conn, userID, 1000)

	txn, err := svc.Credit(context.Background(), nil, EntryInput{UserID: userID, AmountPaise: 500, Description: "refund"})
	require.Error(t, err)
	assert.Nil(t, txn)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
	assert.Contains(t, err.Error(), "wallet vanished")

	assert.Equal(t, int64(1000), dbtest.MustReloadWallet(t, conn, userID).BalancePaise)
}

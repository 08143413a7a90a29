package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
	"github.com/kartwise/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the wallet ledger. Every balance change is one conditional
// update plus one appended transaction, inside the caller's transaction.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	GetWallet(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WalletView, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*Reconciliation, error)
}

// EntryInput describes one credit or debit.
type EntryInput struct {
	UserID      uuid.UUID
	AmountPaise int64
	Description string
	OrderRef    string
}

type WalletView struct {
	UserID       uuid.UUID                  `json:"user_id"`
	BalancePaise int64                      `json:"balance_paise"`
	Transactions []models.WalletTransaction `json:"transactions"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

// Reconciliation compares the stored balance with the transaction log.
type Reconciliation struct {
	UserID        uuid.UUID `json:"user_id"`
	BalancePaise  int64     `json:"balance_paise"`
	CreditsPaise  int64     `json:"credits_paise"`
	DebitsPaise   int64     `json:"debits_paise"`
	ComputedPaise int64     `json:"computed_paise"`
	Balanced      bool      `json:"balanced"`
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
}

// NewService wires the wallet ledger. emitter may be nil, in which case no
// wallet_credited events are written.
func NewService(tx txRunner, repo Repository, emitter outbox.Emitter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.apply(ctx, tx, enums.WalletTransactionTypeCredit, input)
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.apply(ctx, tx, enums.WalletTransactionTypeDebit, input)
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, kind enums.WalletTransactionType, input EntryInput) (*models.WalletTransaction, error) {
	if err := validateEntry(input); err != nil {
		return nil, err
	}
	if tx == nil {
		var out *models.WalletTransaction
		err := s.tx.WithTx(ctx, func(inner *gorm.DB) error {
			var err error
			out, err = s.applyTx(ctx, inner, kind, input)
			return err
		})
		return out, err
	}
	return s.applyTx(ctx, tx, kind, input)
}

func (s *service) applyTx(ctx context.Context, tx *gorm.DB, kind enums.WalletTransactionType, input EntryInput) (*models.WalletTransaction, error) {
	repo := s.repo.WithTx(tx)

	wallet, err := repo.Ensure(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure wallet")
	}

	switch kind {
	case enums.WalletTransactionTypeCredit:
		if err := repo.AddBalance(ctx, input.UserID, input.AmountPaise); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit wallet")
		}
	case enums.WalletTransactionTypeDebit:
		ok, err := repo.SubtractBalance(ctx, input.UserID, input.AmountPaise)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit wallet")
		}
		if !ok {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonInsufficientBalance, "insufficient wallet balance").
				WithDetails(map[string]any{
					"balance_paise":   wallet.BalancePaise,
					"requested_paise": input.AmountPaise,
				})
		}
	}

	updated, err := repo.FindByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload wallet")
	}
	if updated == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet vanished after balance update")
	}

	txn := &models.WalletTransaction{
		WalletID:          updated.ID,
		UserID:            input.UserID,
		Type:              kind,
		AmountPaise:       input.AmountPaise,
		BalanceAfterPaise: updated.BalancePaise,
		Description:       strings.TrimSpace(input.Description),
	}
	if ref := strings.TrimSpace(input.OrderRef); ref != "" {
		txn.OrderRef = &ref
	}
	if err := repo.AppendTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append wallet transaction")
	}

	if kind == enums.WalletTransactionTypeCredit && s.outbox != nil {
		event := outbox.DomainEvent{
			EventType:     enums.EventWalletCredited,
			AggregateType: enums.AggregateWallet,
			AggregateID:   updated.ID,
			Data: payloads.WalletCreditedEvent{
				UserID:       input.UserID,
				AmountPaise:  input.AmountPaise,
				BalancePaise: updated.BalancePaise,
				OrderRef:     input.OrderRef,
				Description:  txn.Description,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit wallet credited")
		}
	}

	return txn, nil
}

func (s *service) GetWallet(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WalletView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	wallet, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	txns, next, err := s.repo.ListTransactions(ctx, wallet.ID, params)
	if err != nil {
		return nil, pageError(err, "list wallet transactions")
	}
	return &WalletView{
		UserID:       userID,
		BalancePaise: wallet.BalancePaise,
		Transactions: txns,
		NextCursor:   next,
	}, nil
}

func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (*Reconciliation, error) {
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	if wallet == nil {
		return &Reconciliation{UserID: userID, Balanced: true}, nil
	}
	credits, debits, err := s.repo.SumByType(ctx, wallet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum wallet transactions")
	}
	computed := credits - debits
	return &Reconciliation{
		UserID:        userID,
		BalancePaise:  wallet.BalancePaise,
		CreditsPaise:  credits,
		DebitsPaise:   debits,
		ComputedPaise: computed,
		Balanced:      computed == wallet.BalancePaise,
	}, nil
}

func validateEntry(input EntryInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.AmountPaise <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	return nil
}

func pageError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}

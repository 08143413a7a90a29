package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/internal/wallet"
	"github.com/kartwise/storefront-backend/pkg/enums"
)

type Wallet struct {
	UserID       uuid.UUID           `json:"user_id"`
	BalancePaise int64               `json:"balance_paise"`
	Transactions []WalletTransaction `json:"transactions"`
	NextCursor   string              `json:"next_cursor,omitempty"`
}

type WalletTransaction struct {
	ID                uuid.UUID                   `json:"id"`
	Type              enums.WalletTransactionType `json:"type"`
	AmountPaise       int64                       `json:"amount_paise"`
	BalanceAfterPaise int64                       `json:"balance_after_paise"`
	Description       string                      `json:"description"`
	OrderRef          *string                     `json:"order_ref,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
}

func NewWallet(view *wallet.WalletView) Wallet {
	txns := make([]WalletTransaction, 0, len(view.Transactions))
	for _, t := range view.Transactions {
		txns = append(txns, WalletTransaction{
			ID:                t.ID,
			Type:              t.Type,
			AmountPaise:       t.AmountPaise,
			BalanceAfterPaise: t.BalanceAfterPaise,
			Description:       t.Description,
			OrderRef:          t.OrderRef,
			CreatedAt:         t.CreatedAt,
		})
	}
	return Wallet{
		UserID:       view.UserID,
		BalancePaise: view.BalancePaise,
		Transactions: txns,
		NextCursor:   view.NextCursor,
	}
}

type WalletReconciliation struct {
	UserID        uuid.UUID `json:"user_id"`
	BalancePaise  int64     `json:"balance_paise"`
	CreditsPaise  int64     `json:"credits_paise"`
	DebitsPaise   int64     `json:"debits_paise"`
	ComputedPaise int64     `json:"computed_paise"`
	Balanced      bool      `json:"balanced"`
}

func NewWalletReconciliation(rec *wallet.Reconciliation) WalletReconciliation {
	return WalletReconciliation{
		UserID:        rec.UserID,
		BalancePaise:  rec.BalancePaise,
		CreditsPaise:  rec.CreditsPaise,
		DebitsPaise:   rec.DebitsPaise,
		ComputedPaise: rec.ComputedPaise,
		Balanced:      rec.Balanced,
	}
}

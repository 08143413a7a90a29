package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/pagination"
)

// Repository persists wallets and their append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	AddBalance(ctx context.Context, userID uuid.UUID, amountPaise int64) error
	SubtractBalance(ctx context.Context, userID uuid.UUID, amountPaise int64) (bool, error)
	AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error)
	SumByType(ctx context.Context, walletID uuid.UUID) (credits, debits int64, err error)
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

// Ensure creates the wallet row when missing and returns the stored row.
func (r *repository) Ensure(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	row := &models.Wallet{UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var row models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) AddBalance(ctx context.Context, userID uuid.UUID, amountPaise int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"balance_paise": gorm.Expr("balance_paise + ?", amountPaise),
			"updated_at":    time.Now().UTC(),
		}).Error
}

// SubtractBalance reports false when the balance does not cover the amount.
func (r *repository) SubtractBalance(ctx context.Context, userID uuid.UUID, amountPaise int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance_paise >= ?", userID, amountPaise).
		Updates(map[string]any{
			"balance_paise": gorm.Expr("balance_paise - ?", amountPaise),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	query, err := pagination.Newest(r.db.WithContext(ctx).Where("wallet_id = ?", walletID), params)
	if err != nil {
		return nil, "", err
	}
	var rows []models.WalletTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params, func(t models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return rows, next, nil
}

func (r *repository) SumByType(ctx context.Context, walletID uuid.UUID) (int64, int64, error) {
	type row struct {
		Type  enums.WalletTransactionType
		Total int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("type, COALESCE(SUM(amount_paise), 0) AS total").
		Where("wallet_id = ?", walletID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return 0, 0, err
	}
	var credits, debits int64
	for _, r := range rows {
		switch r.Type {
		case enums.WalletTransactionTypeCredit:
			credits = r.Total
		case enums.WalletTransactionTypeDebit:
			debits = r.Total
		}
	}
	return credits, debits, nil
}

package address

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, addr *models.Address) error
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
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

func (r *repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &addr, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *repository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{})
	return res.RowsAffected > 0, res.Error
}

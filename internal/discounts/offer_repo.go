package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
)

type OfferRepository interface {
	WithTx(tx *gorm.DB) OfferRepository
	Create(ctx context.Context, offer *models.Offer) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateWithItems(ctx context.Context, id uuid.UUID, updates map[string]any, items []models.OfferItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	List(ctx context.Context) ([]models.Offer, error)
	DeactivateEndedBefore(ctx context.Context, now time.Time) (int64, error)
	ListLive(ctx context.Context, now time.Time) ([]models.Offer, error)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) WithTx(tx *gorm.DB) OfferRepository {
	if tx == nil {
		return r
	}
	return &offerRepository{db: tx}
}

func (r *offerRepository) Create(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *offerRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Offer{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateWithItems applies updates and swaps the offer's item set in one
// transaction.
func (r *offerRepository) UpdateWithItems(ctx context.Context, id uuid.UUID, updates map[string]any, items []models.OfferItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Offer{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("offer_id = ?", id).Delete(&models.OfferItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.OfferItem, len(items))
		for i, item := range items {
			rows[i] = models.OfferItem{OfferID: id, RefID: item.RefID}
		}
		return tx.Create(&rows).Error
	})
}

func (r *offerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (r *offerRepository) List(ctx context.Context) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *offerRepository) DeactivateEndedBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("is_active = ? AND end_date < ?", true, now).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	return res.RowsAffected, res.Error
}

// ListLive returns active offers whose window contains now, strongest first.
// Ties go to the most recently created offer.
func (r *offerRepository) ListLive(ctx context.Context, now time.Time) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("is_active = ?", true).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Order("percentage DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

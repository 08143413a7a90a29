package discounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
)

// offersAggregateID keys offers_synced events; offers sync as one batch.
var offersAggregateID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("storefront:offers"))

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SyncResult summarises one offer sync run.
type SyncResult struct {
	ActiveOffers      int `json:"active_offers"`
	VariantsPriced    int `json:"variants_priced"`
	OffersDeactivated int `json:"offers_deactivated"`
}

// OfferSync materialises live offers onto variant discount prices. Each run
// recomputes every price from scratch so it can be repeated safely.
type OfferSync struct {
	tx     txRunner
	offers OfferRepository
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewOfferSync(tx txRunner, offers OfferRepository, emitter outbox.Emitter, logg *logger.Logger) (*OfferSync, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if offers == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	return &OfferSync{
		tx:     tx,
		offers: offers,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

type variantScope struct {
	ID         uuid.UUID
	PricePaise int64
	ProductID  uuid.UUID
	CategoryID uuid.UUID
}

func (s *OfferSync) Run(ctx context.Context) (*SyncResult, error) {
	now := s.now()
	result := &SyncResult{}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.offers.WithTx(tx)

		deactivated, err := repo.DeactivateEndedBefore(ctx, now)
		if err != nil {
			return fmt.Errorf("deactivate ended offers: %w", err)
		}
		result.OffersDeactivated = int(deactivated)

		live, err := repo.ListLive(ctx, now)
		if err != nil {
			return fmt.Errorf("list live offers: %w", err)
		}
		result.ActiveOffers = len(live)

		if err := tx.WithContext(ctx).
			Model(&models.Variant{}).
			Where("discount_price_paise IS NOT NULL").
			Update("discount_price_paise", nil).Error; err != nil {
			return fmt.Errorf("clear discount prices: %w", err)
		}
		if len(live) == 0 {
			return nil
		}

		var variants []variantScope
		if err := tx.WithContext(ctx).
			Table("variants").
			Select("variants.id, variants.price_paise, variants.product_id, products.category_id").
			Joins("JOIN products ON products.id = variants.product_id").
			Scan(&variants).Error; err != nil {
			return fmt.Errorf("load variants: %w", err)
		}

		for _, v := range variants {
			offer := bestOffer(live, v.ProductID, v.CategoryID)
			if offer == nil {
				continue
			}
			price := OfferPrice(v.PricePaise, offer.Percentage)
			if err := tx.WithContext(ctx).
				Model(&models.Variant{}).
				Where("id = ?", v.ID).
				Update("discount_price_paise", price).Error; err != nil {
				return fmt.Errorf("price variant %s: %w", v.ID, err)
			}
			result.VariantsPriced++
		}

		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOffersSynced,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offersAggregateID,
			Data: payloads.OffersSyncedEvent{
				ActiveOffers:      result.ActiveOffers,
				VariantsPriced:    result.VariantsPriced,
				OffersDeactivated: result.OffersDeactivated,
				SyncedAt:          now,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sync offers")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"active_offers":      result.ActiveOffers,
			"variants_priced":    result.VariantsPriced,
			"offers_deactivated": result.OffersDeactivated,
		})
		s.logg.Info(logCtx, "offers synced")
	}
	return result, nil
}

// bestOffer picks the first matching offer; live is ordered strongest first.
func bestOffer(live []models.Offer, productID, categoryID uuid.UUID) *models.Offer {
	for i := range live {
		if live[i].Covers(productID, categoryID) {
			return &live[i]
		}
	}
	return nil
}

// OfferPrice applies percentage to a paise price and rounds to a whole rupee.
func OfferPrice(pricePaise int64, percentage int) int64 {
	rupees := decimal.New(pricePaise, -2)
	factor := decimal.NewFromInt(100 - int64(percentage)).Div(decimal.NewFromInt(100))
	return rupees.Mul(factor).Round(0).Mul(decimal.NewFromInt(100)).IntPart()
}

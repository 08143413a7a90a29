package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type offerSyncer interface {
	Run(ctx context.Context) (*discounts.SyncResult, error)
}

type couponExpirer interface {
	ExpireCoupons(ctx context.Context, now time.Time) (int64, error)
}

type intentExpirer interface {
	ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error)
}

// NewOfferSyncJob re-applies live offers to variant prices so offers that
// start or end between admin edits take effect.
func NewOfferSyncJob(logg *logger.Logger, sync offerSyncer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sync == nil {
		return nil, fmt.Errorf("offer sync required")
	}
	return &offerSyncJob{logg: logg, sync: sync}, nil
}

type offerSyncJob struct {
	logg *logger.Logger
	sync offerSyncer
}

func (j *offerSyncJob) Name() string { return "offer-sync" }

func (j *offerSyncJob) Run(ctx context.Context) error {
	result, err := j.sync.Run(ctx)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"active_offers":      result.ActiveOffers,
		"variants_priced":    result.VariantsPriced,
		"offers_deactivated": result.OffersDeactivated,
	}), "offer sync complete")
	return nil
}

func NewCouponExpiryJob(logg *logger.Logger, coupons couponExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	return &couponExpiryJob{logg: logg, coupons: coupons, now: time.Now}, nil
}

type couponExpiryJob struct {
	logg    *logger.Logger
	coupons couponExpirer
	now     func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	expired, err := j.coupons.ExpireCoupons(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithField(ctx, "coupons_expired", expired), "coupon expiry complete")
	return nil
}

// NewPaymentIntentExpiryJob cancels gateway intents the customer abandoned.
func NewPaymentIntentExpiryJob(logg *logger.Logger, payments intentExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &paymentIntentExpiryJob{logg: logg, payments: payments, now: time.Now}, nil
}

type paymentIntentExpiryJob struct {
	logg     *logger.Logger
	payments intentExpirer
	now      func() time.Time
}

func (j *paymentIntentExpiryJob) Name() string { return "payment-intent-expiry" }

func (j *paymentIntentExpiryJob) Run(ctx context.Context) error {
	expired, err := j.payments.ExpireStaleIntents(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithField(ctx, "intents_expired", expired), "payment intent expiry complete")
	return nil
}

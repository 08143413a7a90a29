package payments

import (
	"context"
	"time"

	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

const intentExpiredReason = "payment intent expired"

// IntentExpirer fails open payment intents older than the configured TTL.
// Workers that never talk to the gateway use it directly.
type IntentExpirer struct {
	repo Repository
	ttl  time.Duration
}

func NewIntentExpirer(repo Repository, ttl time.Duration) *IntentExpirer {
	return &IntentExpirer{repo: repo, ttl: ttl}
}

func (e *IntentExpirer) ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error) {
	if e == nil || e.repo == nil || e.ttl <= 0 {
		return 0, nil
	}
	expired, err := e.repo.ExpireOpenBefore(ctx, now.Add(-e.ttl), intentExpiredReason)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expire payment intents")
	}
	return expired, nil
}

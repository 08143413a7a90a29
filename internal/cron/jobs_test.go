package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type fakeOfferSync struct {
	err  error
	runs int
}

func (f *fakeOfferSync) Run(context.Context) (*discounts.SyncResult, error) {
	f.runs++
	if f.err != nil {
		return nil, f.err
	}
	return &discounts.SyncResult{ActiveOffers: 2, VariantsPriced: 5}, nil
}

type fakeExpirer struct {
	at  time.Time
	err error
}

func (f *fakeExpirer) ExpireCoupons(_ context.Context, now time.Time) (int64, error) {
	f.at = now
	return 3, f.err
}

func (f *fakeExpirer) ExpireStaleIntents(_ context.Context, now time.Time) (int64, error) {
	f.at = now
	return 1, f.err
}

func TestStorefrontJobsDelegate(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	sync := &fakeOfferSync{}
	coupons := &fakeExpirer{}
	payments := &fakeExpirer{}

	offerJob, err := NewOfferSyncJob(logger.Nop(), sync)
	require.NoError(t, err)
	couponJob, err := NewCouponExpiryJob(logger.Nop(), coupons)
	require.NoError(t, err)
	couponJob.(*couponExpiryJob).now = func() time.Time { return now }
	intentJob, err := NewPaymentIntentExpiryJob(logger.Nop(), payments)
	require.NoError(t, err)
	intentJob.(*paymentIntentExpiryJob).now = func() time.Time { return now }

	names := []string{}
	for _, job := range []Job{offerJob, couponJob, intentJob} {
		require.NoError(t, job.Run(context.Background()))
		names = append(names, job.Name())
	}
	assert.Equal(t, []string{"offer-sync", "coupon-expiry", "payment-intent-expiry"}, names)
	assert.Equal(t, 1, sync.runs)
	assert.True(t, coupons.at.Equal(now))
	assert.True(t, payments.at.Equal(now))
}

func TestOfferSyncJobPropagatesError(t *testing.T) {
	job, err := NewOfferSyncJob(logger.Nop(), &fakeOfferSync{err: errors.New("boom")})
	require.NoError(t, err)
	assert.EqualError(t, job.Run(context.Background()), "boom")
}

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockSingleOwner(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "sf:lock:cron-worker:test", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "sf:lock:cron-worker:test", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.values, "sf:lock:cron-worker:test")
	require.NoError(t, first.Release(context.Background()))
	assert.NotContains(t, store.values, "sf:lock:cron-worker:test")
}

func TestRedisLockReleaseKeepsSuccessorLock(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	require.NoError(t, err)

	// lease expired and another replica took over
	store.values["k"] = "successor"
	require.NoError(t, lock.Release(context.Background()))
	assert.Equal(t, "successor", store.values["k"])
}

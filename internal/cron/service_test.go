package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	busy     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.busy {
		return false, nil
	}
	f.acquires++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, registry *Registry, now *time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return *now }
	return svc
}

func TestTickRunsEveryDueJobEvenAfterFailure(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	ok := &testJob{name: "ok"}
	broken := &testJob{name: "broken", err: errors.New("boom")}
	hourly := &testJob{name: "hourly"}
	registry := NewRegistry()
	registry.Register(broken, 0)
	registry.Register(ok, 0)
	registry.Register(hourly, time.Hour)
	lock := &fakeLock{}
	svc := newTestService(t, lock, registry, &now)

	err := svc.tickOnce(context.Background())
	require.EqualError(t, err, "broken: boom")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, hourly.runs)

	now = now.Add(time.Minute)
	require.Error(t, svc.tickOnce(context.Background()))
	assert.Equal(t, 2, ok.runs)
	assert.Equal(t, 1, hourly.runs)
	assert.Equal(t, 2, lock.releases)
}

func TestTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	now := time.Now()
	job := &testJob{name: "ok"}
	registry := NewRegistry()
	registry.Register(job, 0)
	lock := &fakeLock{busy: true}
	svc := newTestService(t, lock, registry, &now)

	require.NoError(t, svc.tickOnce(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestNewServiceRequiresRegistry(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}})
	assert.EqualError(t, err, "registry required")
}

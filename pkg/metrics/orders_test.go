package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncPlaced("cod")
	m.IncPlaced("cod")
	m.IncRejected("INSUFFICIENT_STOCK")
	m.ObserveRefund(10800)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "orders_placed_total", "payment_method", "cod"); err != nil || got != 2 {
		t.Fatalf("expected placed=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "orders_rejected_total", "reason", "INSUFFICIENT_STOCK"); err != nil || got != 1 {
		t.Fatalf("expected rejected=1, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "wallet_refunded_paise_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 10800 {
		t.Fatalf("expected refunded paise 10800")
	}
}

func TestServerMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "api")
	m.Observe("/api/v1/orders", "POST", 201, 40*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_api_http_requests_total", "route", "/api/v1/orders"); err != nil || got != 1 {
		t.Fatalf("expected request count 1, got %f (%v)", got, err)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *OrderMetrics
	m.IncPlaced("cod")
	NewOrderMetrics(nil).ObserveRefund(1)
	var s *ServerMetrics
	s.Observe("", "GET", 200, time.Millisecond)
}

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order_created")
	m.IncPublished("order_created")
	m.IncRetried("")
	m.IncDeadLettered("payment_failed", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if v, err := fetchCounterValue(mfs, "outbox_events_published_total", "event_type", "order_created"); err != nil || v != 2 {
		t.Fatalf("published = %v, %v", v, err)
	}
	if v, err := fetchCounterValue(mfs, "outbox_events_retried_total", "event_type", "unknown"); err != nil || v != 1 {
		t.Fatalf("retried = %v, %v", v, err)
	}
	if v, err := fetchCounterValue(mfs, "outbox_events_dead_lettered_total", "reason", "max_attempts"); err != nil || v != 1 {
		t.Fatalf("dead lettered = %v, %v", v, err)
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.IncPublished("order_created")
}

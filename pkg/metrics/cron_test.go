package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsTracksOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	m.ObserveRun("coupon-expiry", 250*time.Millisecond, finished, nil)
	m.ObserveRun("coupon-expiry", time.Second, finished.Add(time.Minute), errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	ok := findSample(mfs, "cron_job_runs_total", map[string]string{"job": "coupon-expiry", "outcome": OutcomeSucceeded})
	failed := findSample(mfs, "cron_job_runs_total", map[string]string{"job": "coupon-expiry", "outcome": OutcomeFailed})
	if ok.GetCounter().GetValue() != 1 || failed.GetCounter().GetValue() != 1 {
		t.Fatalf("unexpected run counts: ok=%v failed=%v", ok, failed)
	}
	last := findSample(mfs, "cron_job_last_success_timestamp_seconds", map[string]string{"job": "coupon-expiry"})
	if got := last.GetGauge().GetValue(); got != float64(finished.Unix()) {
		t.Fatalf("last success should ignore the failed run, got %v", got)
	}
	hist := findSample(mfs, "cron_job_duration_seconds", map[string]string{"job": "coupon-expiry"})
	if hist.GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two duration samples, got %d", hist.GetHistogram().GetSampleCount())
	}
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("x", time.Second, time.Now(), nil)
	if NewCronJobMetrics(nil) != nil {
		t.Fatal("nil registerer should yield nil metrics")
	}
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// findSample returns the series of name carrying every label in want, or nil.
func findSample(mfs []*dto.MetricFamily, name string, want map[string]string) *dto.Metric {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil
	}
	for _, metric := range mf.GetMetric() {
		matched := 0
		for _, pair := range metric.GetLabel() {
			if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
				matched++
			}
		}
		if matched == len(want) {
			return metric
		}
	}
	return nil
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric := findSample(mfs, name, map[string]string{label: value})
	if metric == nil {
		return 0, fmt.Errorf("no %s series with %s=%s", name, label, value)
	}
	return metric.GetCounter().GetValue(), nil
}

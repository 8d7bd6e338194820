package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsRegisterNamespacedSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("intent-expiry", 120*time.Millisecond)
	m.IncSuccess("intent-expiry")
	m.IncFailure("subscription-expiry")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"tunnelpay_cron_sweep_duration_seconds",
		"tunnelpay_cron_sweep_runs_total",
	} {
		if !names[want] {
			t.Fatalf("metric %s not registered, got %v", want, names)
		}
	}
}

func TestCronJobMetricsNoopWithoutRegisterer(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.ObserveDuration("intent-expiry", time.Second)
	m.IncSuccess("intent-expiry")
	m.IncFailure("intent-expiry")

	var nilMetrics *CronJobMetrics
	nilMetrics.IncSuccess("intent-expiry")
}

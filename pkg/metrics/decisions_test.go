package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDecisionMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDecisionMetrics(reg)
	metrics.IncVerdict("auto_approvable")
	metrics.IncTransition("approve", "applied")
	metrics.IncTransition("approve", "applied")
	metrics.AddImportRows("clients", "imported", 12)
	metrics.ObserveSolve("cost+margin", 3*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "price_request_verdicts", "verdict", "auto_approvable"); err != nil {
		t.Fatalf("fetch verdicts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected verdicts=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "price_request_transitions", "action", "approve"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected transitions=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "refdata_import_rows", "table", "clients"); err != nil {
		t.Fatalf("fetch import rows: %v", err)
	} else if got != 12 {
		t.Fatalf("expected rows=12, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "margin_solve_seconds", "basis", "cost+margin"); err != nil {
		t.Fatalf("fetch solve time: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected solve sum > 0, got %f", got)
	}
}

func TestDecisionMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *DecisionMetrics
	metrics.IncVerdict("rejected")
	metrics.IncTransition("reject", "conflict")
	metrics.AddImportRows("products", "skipped", 1)
	metrics.ObserveSolve("cost+markup", time.Millisecond)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

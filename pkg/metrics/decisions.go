package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics records outcomes of the pricing decision pipeline.
type DecisionMetrics struct {
	verdicts    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	importRows  *prometheus.CounterVec
	solveTime   *prometheus.HistogramVec
}

// NewDecisionMetrics registers the decision metrics on the provided registerer.
func NewDecisionMetrics(reg prometheus.Registerer) *DecisionMetrics {
	if reg == nil {
		return &DecisionMetrics{}
	}
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_request_verdicts",
		Help: "Boundary classification verdicts handed out at submission time.",
	}, []string{"verdict"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_request_transitions",
		Help: "Approval state machine transitions by action and outcome.",
	}, []string{"action", "outcome"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refdata_import_rows",
		Help: "Reference data import rows by table and outcome.",
	}, []string{"table", "outcome"})
	solveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "margin_solve_seconds",
		Help:    "Duration of margin equation solves in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"basis"})
	reg.MustRegister(verdicts, transitions, importRows, solveTime)
	return &DecisionMetrics{
		verdicts:    verdicts,
		transitions: transitions,
		importRows:  importRows,
		solveTime:   solveTime,
	}
}

// IncVerdict increments the verdict counter for a classification result.
func (d *DecisionMetrics) IncVerdict(verdict string) {
	if d == nil || d.verdicts == nil {
		return
	}
	d.verdicts.WithLabelValues(normalizeLabel(verdict)).Inc()
}

// IncTransition increments the transition counter for the action/outcome pair.
func (d *DecisionMetrics) IncTransition(action, outcome string) {
	if d == nil || d.transitions == nil {
		return
	}
	d.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// AddImportRows counts rows processed by a reference data import.
func (d *DecisionMetrics) AddImportRows(table, outcome string, n int) {
	if d == nil || d.importRows == nil || n <= 0 {
		return
	}
	d.importRows.WithLabelValues(normalizeLabel(table), normalizeLabel(outcome)).Add(float64(n))
}

// ObserveSolve records the duration of one margin solve keyed by its basis pair.
func (d *DecisionMetrics) ObserveSolve(basis string, duration time.Duration) {
	if d == nil || d.solveTime == nil {
		return
	}
	d.solveTime.WithLabelValues(normalizeLabel(basis)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

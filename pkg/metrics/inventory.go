package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics records ledger and propagation activity.
type InventoryMetrics struct {
	transactions *prometheus.CounterVec
	clamps       prometheus.Counter
	alerts       *prometheus.CounterVec
	cascadeSize  prometheus.Histogram
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_transactions_total",
		Help: "Ledger transactions appended, by type.",
	}, []string{"type"})
	clamps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_clamped_deltas_total",
		Help: "Quantity applications that clamped at zero instead of going negative.",
	})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_alerts_total",
		Help: "Alerts raised after committed changes, by type.",
	}, []string{"type"})
	cascadeSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_cascade_transactions",
		Help:    "Transactions produced per primary change, including linked items.",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})
	reg.MustRegister(transactions, clamps, alerts, cascadeSize)
	return &InventoryMetrics{
		transactions: transactions,
		clamps:       clamps,
		alerts:       alerts,
		cascadeSize:  cascadeSize,
	}
}

// IncTransaction counts one appended ledger transaction.
func (m *InventoryMetrics) IncTransaction(txType string) {
	if m == nil || m.transactions == nil {
		return
	}
	m.transactions.WithLabelValues(normalizeLabel(txType)).Inc()
}

// IncClamp counts one clamp-at-zero event.
func (m *InventoryMetrics) IncClamp() {
	if m == nil || m.clamps == nil {
		return
	}
	m.clamps.Inc()
}

// IncAlert counts one persisted alert.
func (m *InventoryMetrics) IncAlert(alertType string) {
	if m == nil || m.alerts == nil {
		return
	}
	m.alerts.WithLabelValues(normalizeLabel(alertType)).Inc()
}

// ObserveCascade records how many transactions one primary change produced.
func (m *InventoryMetrics) ObserveCascade(count int) {
	if m == nil || m.cascadeSize == nil {
		return
	}
	m.cascadeSize.Observe(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

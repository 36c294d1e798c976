package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine records counters for the document and inventory engine.
type Engine struct {
	documents      *prometheus.CounterVec
	stockMovements *prometheus.CounterVec
	codesIssued    *prometheus.CounterVec
	txRetries      prometheus.Counter
	txDuration     *prometheus.HistogramVec
}

// NewEngine registers the engine metrics on the provided registerer. A nil registerer yields a no-op recorder.
func NewEngine(reg prometheus.Registerer) *Engine {
	if reg == nil {
		return &Engine{}
	}
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_document_transitions_total",
		Help: "Commercial document state transitions.",
	}, []string{"domain", "transition"})
	stockMovements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_stock_transactions_total",
		Help: "Stock transactions applied to the ledger.",
	}, []string{"type"})
	codesIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_traceability_codes_issued_total",
		Help: "Traceability codes minted.",
	}, []string{"prefix"})
	txRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "erp_tx_conflict_retries_total",
		Help: "Transactions replayed after a concurrency conflict.",
	})
	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erp_operation_duration_seconds",
		Help:    "Duration of engine operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(documents, stockMovements, codesIssued, txRetries, txDuration)
	return &Engine{
		documents:      documents,
		stockMovements: stockMovements,
		codesIssued:    codesIssued,
		txRetries:      txRetries,
		txDuration:     txDuration,
	}
}

// DocumentTransition counts a document state change (created, approved, cancelled, transferred).
func (e *Engine) DocumentTransition(domain, transition string) {
	if e == nil || e.documents == nil {
		return
	}
	e.documents.WithLabelValues(normalizeLabel(domain), normalizeLabel(transition)).Inc()
}

// StockTransaction counts a ledger transaction of the given type.
func (e *Engine) StockTransaction(txType string) {
	if e == nil || e.stockMovements == nil {
		return
	}
	e.stockMovements.WithLabelValues(normalizeLabel(txType)).Inc()
}

// CodeIssued counts a traceability code minted for prefix.
func (e *Engine) CodeIssued(prefix string) {
	if e == nil || e.codesIssued == nil {
		return
	}
	e.codesIssued.WithLabelValues(normalizeLabel(prefix)).Inc()
}

// TxRetry counts one replay of a conflicting transaction.
func (e *Engine) TxRetry() {
	if e == nil || e.txRetries == nil {
		return
	}
	e.txRetries.Inc()
}

// ObserveDuration records how long the named operation took.
func (e *Engine) ObserveDuration(operation string, d time.Duration) {
	if e == nil || e.txDuration == nil {
		return
	}
	e.txDuration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module. Tracks mint and
// transfer volume, rejected mutations by error code, freeze events, and
// critical path durations.
type Metrics struct {
	ItemsMinted       prometheus.Counter
	Transfers         prometheus.Counter
	ItemsFinalized    prometheus.Counter
	RejectedMutations *prometheus.CounterVec
	MintDuration      prometheus.Histogram
	TransferDuration  prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		ItemsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracelot_items_minted_total",
			Help: "Total number of items minted into the registry",
		}),
		Transfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracelot_transfers_total",
			Help: "Total number of successful custody transfers",
		}),
		ItemsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracelot_items_finalized_total",
			Help: "Total number of items that reached their final recipient",
		}),
		RejectedMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tracelot_rejected_mutations_total",
			Help: "Rejected mint/transfer attempts by error code",
		}, []string{"code"}),
		MintDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracelot_mint_duration_seconds",
			Help:    "Duration of mint operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracelot_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveMint records the duration of a mint operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveMint(start time.Time) {
	m.MintDuration.Observe(time.Since(start).Seconds())
}

// ObserveTransfer records the duration of a transfer operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveTransfer(start time.Time) {
	m.TransferDuration.Observe(time.Since(start).Seconds())
}

// IncrementRejected records a rejected mutation by its error code.
func (m *Metrics) IncrementRejected(code string) {
	m.RejectedMutations.WithLabelValues(code).Inc()
}

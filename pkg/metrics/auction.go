package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuctionMetrics counts bid and settlement outcomes.
type AuctionMetrics struct {
	bids        *prometheus.CounterVec
	settlements *prometheus.CounterVec
	retries     *prometheus.CounterVec
}

// NewAuctionMetrics registers the auction counters on the provided registerer.
func NewAuctionMetrics(reg prometheus.Registerer) *AuctionMetrics {
	if reg == nil {
		return &AuctionMetrics{}
	}
	bids := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_total",
		Help:      "Bid placement attempts by outcome.",
	}, []string{"outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Listing settlement attempts by outcome.",
	}, []string{"outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_conflict_retries_total",
		Help:      "Atomic units replayed after a transient store conflict.",
	}, []string{"operation"})
	reg.MustRegister(bids, settlements, retries)
	return &AuctionMetrics{
		bids:        bids,
		settlements: settlements,
		retries:     retries,
	}
}

// ObserveBid records the outcome of a placeBid call.
func (m *AuctionMetrics) ObserveBid(outcome string) {
	if m == nil || m.bids == nil {
		return
	}
	m.bids.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveSettlement records the outcome of settling one listing.
func (m *AuctionMetrics) ObserveSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncConflictRetry records one replay of an atomic unit.
func (m *AuctionMetrics) IncConflictRetry(operation string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

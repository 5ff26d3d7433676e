package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feewallet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feewallet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feewallet_settlements_total",
			Help: "Total number of settlement operations",
		},
		[]string{"type", "outcome"},
	)

	SettlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feewallet_settlement_duration_seconds",
			Help:    "Settlement operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	InsufficientFundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feewallet_insufficient_funds_total",
			Help: "Total number of operations rejected for insufficient funds",
		},
		[]string{"type"},
	)

	AccountsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feewallet_accounts_created_total",
			Help: "Total number of lazily created accounts",
		},
		[]string{"kind"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSettlement(settlementType, outcome string, duration float64) {
	SettlementsTotal.WithLabelValues(settlementType, outcome).Inc()
	SettlementDuration.WithLabelValues(settlementType).Observe(duration)
}

func RecordInsufficientFunds(settlementType string) {
	InsufficientFundsTotal.WithLabelValues(settlementType).Inc()
}

func RecordAccountCreated(kind string) {
	AccountsCreatedTotal.WithLabelValues(kind).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		credentialsIssuedTotal,
		redemptionsTotal,
		encodeLatencyMs,
	)
}

var (
	credentialsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credentials_issued_total",
			Help: "Issuance attempts by result (ok/encoding_failed/store_failed).",
		},
		[]string{"result"},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_redemptions_total",
			Help: "Redemption attempts by outcome (redeemed/already_redeemed/not_found/error).",
		},
		[]string{"outcome"},
	)

	encodeLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qr_encode_latency_ms",
			Help:    "QR image encoding latency distribution in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"format"},
	)
)

func IncIssued(result string) {
	credentialsIssuedTotal.WithLabelValues(norm(result)).Inc()
}

func IncRedemption(outcome string) {
	redemptionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveEncode(format string, d time.Duration) {
	encodeLatencyMs.WithLabelValues(norm(format)).Observe(float64(d.Microseconds()) / 1000)
}

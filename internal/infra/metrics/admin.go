package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(staffLoginsTotal, rateLimitedTotal) }

var (
	staffLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staff_logins_total",
			Help: "Tracks staff login attempts.",
		},
		[]string{"status"}, // 'authorized', 'unauthorized'
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reception_rate_limited_total",
			Help: "Verify calls rejected by the per-staff rate limiter.",
		},
	)
)

func IncStaffLogin(status string) {
	staffLoginsTotal.WithLabelValues(norm(status)).Inc()
}

func IncRateLimited() { rateLimitedTotal.Inc() }

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(imageCacheRequestsTotal, imageCacheStoredBytes) }

var (
	imageCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_image_cache_requests_total",
			Help: "QR image cache lookups by result.",
		},
		[]string{"result"}, // hit|miss|error
	)

	imageCacheStoredBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qr_image_cache_stored_bytes",
			Help:    "Size of QR images written to the cache.",
			Buckets: prometheus.ExponentialBuckets(512, 2, 8), // 512B .. 64KiB
		},
	)
)

func IncImageCache(result string) {
	imageCacheRequestsTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveImageCached(n int) { imageCacheStoredBytes.Observe(float64(n)) }

package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "qr_ticket_build_info",
		Help: "Always 1; labels carry the binary version, commit, Go version and selected store driver.",
	},
	[]string{"version", "commit", "go_version", "store"},
)

func SetBuildInfo(version, commit, store string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, runtime.Version(), norm(store)).Set(1)
}

package metrics

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called by init() in each metrics file.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister adds every collector to the default registry once per process.
// Collectors already present (e.g. registered by a test) are skipped.
func MustRegister() {
	once.Do(func() {
		for _, c := range collectors {
			if err := prometheus.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if errors.As(err, &are) {
					continue
				}
				panic(err)
			}
		}
	})
}

// norm lower-cases a label value; empty becomes "none".
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "none"
	}
	return s
}

// Package metrics exposes the billing collectors: charge attempt
// outcomes, charge latency and volume, dispatched task counts, and
// per-status subscription gauges. Collector files enqueue themselves via
// init(); main registers the lot once serving /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues collectors declared by the billing metric files.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs every queued collector into the default
// prometheus registry. Safe to call more than once; only the first call
// registers.
func MustRegister() {
	registerOnce.Do(func() {
		if len(pending) > 0 {
			prometheus.MustRegister(pending...)
		}
	})
}

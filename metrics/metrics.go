// Package metrics holds the Prometheus collectors exported by pincore.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pincore"

var (
	// Pins counts the entries of the pin set, by mode.
	Pins = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pins",
		Help:      "Number of pins held, by mode.",
	}, []string{"mode"})

	// GCRemoved counts blocks deleted by the garbage collector.
	GCRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gc_removed_total",
		Help:      "Blocks removed by garbage collection.",
	})

	// GCRuns counts garbage collection passes by outcome ("ok" or "error").
	GCRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gc_runs_total",
		Help:      "Garbage collection passes, by outcome.",
	}, []string{"outcome"})

	// StatDuration observes how long a recursive object stat takes.
	StatDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stat_duration_seconds",
		Help:      "Duration of recursive object stat computations.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

func init() {
	for _, c := range []prometheus.Collector{Pins, GCRemoved, GCRuns, StatDuration} {
		mustRegister(c)
	}
}

func mustRegister(c prometheus.Collector) {
	err := prometheus.Register(c)
	are := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &are) {
		return
	}
	if err != nil {
		panic(err)
	}
}

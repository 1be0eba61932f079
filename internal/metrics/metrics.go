package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	captureStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecap",
			Subsystem: "capture",
			Name:      "starts_total",
			Help:      "Number of successful capture starts.",
		}, []string{"platform"},
	)
	captureStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecap",
			Subsystem: "capture",
			Name:      "stops_total",
			Help:      "Number of captures stopped on request.",
		}, []string{"platform"},
	)
	captureReaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecap",
			Subsystem: "capture",
			Name:      "reaps_total",
			Help:      "Number of captures reaped after their process exited.",
		}, []string{"platform"},
	)
	activeCaptures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "livecap",
			Subsystem: "capture",
			Name:      "active",
			Help:      "Captures currently tracked by the registry.",
		},
	)
	pollTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "livecap",
			Subsystem: "poller",
			Name:      "ticks_total",
			Help:      "Plan poller iterations.",
		},
	)
	resolveFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecap",
			Subsystem: "poller",
			Name:      "resolve_failures_total",
			Help:      "Live status resolutions that returned an error.",
		}, []string{"platform"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{captureStarts, captureStops, captureReaps, activeCaptures, pollTicks, resolveFailures}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// already registered is fine, keep the existing collector
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(platform string) {
	if regOK.Load() {
		captureStarts.WithLabelValues(platform).Inc()
	}
}

func IncStop(platform string) {
	if regOK.Load() {
		captureStops.WithLabelValues(platform).Inc()
	}
}

func IncReap(platform string) {
	if regOK.Load() {
		captureReaps.WithLabelValues(platform).Inc()
	}
}

func SetActiveCaptures(n int) {
	if regOK.Load() {
		activeCaptures.Set(float64(n))
	}
}

func IncPollTick() {
	if regOK.Load() {
		pollTicks.Inc()
	}
}

func IncResolveFailure(platform string) {
	if regOK.Load() {
		resolveFailures.WithLabelValues(platform).Inc()
	}
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics instruments the reconcile loop with Prometheus counters
// and histograms. The compiler core itself never imports this package: per
// the concurrency model, the core is a pure function and the only shared
// resource it touches is read-only inventory, so instrumentation is wired in
// by the surrounding service, not the core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles the metrics emitted around one reconcile loop instance.
// A fresh Registry should be created per prometheus.Registerer (production
// code uses prometheus.DefaultRegisterer; tests use a private registry).
type Registry struct {
	CompileDuration prometheus.Histogram
	CompileTotal    *prometheus.CounterVec
	RulesetCommands prometheus.Gauge
	ApplyDuration   prometheus.Histogram
	ApplyTotal      *prometheus.CounterVec
}

// NewRegistry registers and returns the reconcile loop's metrics against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		CompileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pf",
			Subsystem: "compiler",
			Name:      "compile_duration_seconds",
			Help:      "Time taken to compile one ruleset from inventory, in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		CompileTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pf",
			Subsystem: "compiler",
			Name:      "compile_total",
			Help:      "Total number of compile attempts, labeled by result.",
		}, []string{"result"}),
		RulesetCommands: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pf",
			Subsystem: "compiler",
			Name:      "ruleset_commands",
			Help:      "Number of nftables commands in the most recently emitted ruleset.",
		}),
		ApplyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pf",
			Subsystem: "applier",
			Name:      "apply_duration_seconds",
			Help:      "Time taken to validate and apply one compiled ruleset, in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		ApplyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pf",
			Subsystem: "applier",
			Name:      "apply_total",
			Help:      "Total number of apply attempts, labeled by result.",
		}, []string{"result"}),
	}
}

// ObserveApply records the outcome of one apply cycle: duration in seconds
// and whether nft accepted the ruleset.
func (r *Registry) ObserveApply(seconds float64, ok bool) {
	r.ApplyDuration.Observe(seconds)
	if ok {
		r.ApplyTotal.WithLabelValues("ok").Inc()
	} else {
		r.ApplyTotal.WithLabelValues("error").Inc()
	}
}

// ObserveCompile records the outcome of one compile cycle: duration in
// seconds, whether it succeeded, and (on success) how many commands the
// serialized ruleset contained.
func (r *Registry) ObserveCompile(seconds float64, ok bool, commandCount int) {
	r.CompileDuration.Observe(seconds)
	if ok {
		r.CompileTotal.WithLabelValues("ok").Inc()
		r.RulesetCommands.Set(float64(commandCount))
	} else {
		r.CompileTotal.WithLabelValues("error").Inc()
	}
}

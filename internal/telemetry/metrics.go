// Package telemetry holds the Manager's Prometheus instrumentation.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MetricUpdates counts snapshot ingests into the metric cache.
	MetricUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_metric_updates_total",
		Help: "Number of node metric snapshots ingested.",
	})

	// EvaluatorTicks counts completed alarm evaluation passes.
	EvaluatorTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_alarm_evaluator_ticks_total",
		Help: "Number of completed alarm evaluation ticks.",
	})

	// AlarmEvents counts alarm state transitions by type.
	AlarmEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_alarm_events_total",
		Help: "Number of alarm transitions dispatched, by event type.",
	}, []string{"event_type"})

	// ManagedRules reports the current size of the evaluator rule map.
	ManagedRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_alarm_managed_rules",
		Help: "Number of alarm rules currently managed by the evaluator.",
	})

	// ProvisionerSyncs counts provisioner reconciliation passes.
	ProvisionerSyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_alarm_provisioner_syncs_total",
		Help: "Number of completed rule provisioner synchronizations.",
	})
)

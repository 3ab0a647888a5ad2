package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts command dispatch outcomes and plan activity.
type Metrics struct {
	Commands      *prometheus.CounterVec
	PlansBuilt    *prometheus.CounterVec
	StepsExecuted *prometheus.CounterVec
}

// NewMetrics registers the service counters with reg. A nil registerer uses
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fusionpilot_commands_total",
			Help: "Commands served, by command name and outcome.",
		}, []string{"command", "outcome"}),
		PlansBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fusionpilot_plans_built_total",
			Help: "Plans proposed, by classified intent tag.",
		}, []string{"tag"}),
		StepsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fusionpilot_steps_executed_total",
			Help: "Plan steps executed, by backend domain and final status.",
		}, []string{"domain", "status"}),
	}
}

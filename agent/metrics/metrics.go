package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach",
		Name:      "turns_total",
		Help:      "Completed chat turns by answering agent and status.",
	}, []string{"agent", "status"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coach",
		Name:      "turn_duration_seconds",
		Help:      "Wall time of one chat turn including history load and save.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
	})

	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach",
		Name:      "tool_invocations_total",
		Help:      "Tool executions by tool name and outcome status.",
	}, []string{"tool", "status"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach",
		Name:      "notifications_total",
		Help:      "Operator notifications by channel and result.",
	}, []string{"channel", "result"})
)

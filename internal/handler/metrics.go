package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the domain operations the request metrics from the
// gin middleware cannot see.
type Metrics struct {
	ChatRequests       *prometheus.CounterVec
	StoryMutations     *prometheus.CounterVec
	SequenceOperations *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storyhealer_chat_requests_total",
			Help: "Chat messages processed, by classified update type.",
		}, []string{"update_type"}),
		StoryMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storyhealer_story_mutations_total",
			Help: "Story edits applied, by kind and outcome.",
		}, []string{"kind", "updated"}),
		SequenceOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storyhealer_sequence_operations_total",
			Help: "Page sequence operations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

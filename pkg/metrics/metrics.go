// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal tracks inbound transport events by outcome.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Inbound transport events",
		},
		[]string{"outcome"},
	)

	// DispatchDuration tracks how long a single dispatch takes.
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_dispatch_duration_seconds",
			Help:    "Command dispatch duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// CommandsTotal tracks dispatched commands by name.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Dispatched commands",
		},
		[]string{"command"},
	)

	// WizardsCancelledTotal counts wizards unwound via cancel/back.
	WizardsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_wizards_cancelled_total",
			Help: "Wizards cancelled before commit",
		},
	)

	// ExamplesCommittedTotal counts dialog examples committed to the dataset.
	ExamplesCommittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_examples_committed_total",
			Help: "Dialog examples committed to the dataset",
		},
	)

	// DatasetSavesTotal counts whole-document persistence calls.
	DatasetSavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_dataset_saves_total",
			Help: "Dataset document writes",
		},
	)

	// BackupsTotal counts dataset backups by outcome.
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_backups_total",
			Help: "Dataset backups",
		},
		[]string{"outcome"},
	)

	// LLMRequestDuration tracks model completion duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_llm_request_duration_seconds",
			Help:    "Model completion duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// LLMMalformedRepliesTotal counts model replies that failed strict parsing.
	LLMMalformedRepliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_llm_malformed_replies_total",
			Help: "Model replies not parseable as the expected JSON shape",
		},
	)

	// UsersAuthorizedTotal counts successful password registrations.
	UsersAuthorizedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_users_authorized_total",
			Help: "Users registered through the password gate",
		},
	)
)

// RecordLLMRequest records one model completion.
func RecordLLMRequest(provider, status string, seconds float64) {
	LLMRequestDuration.WithLabelValues(provider, status).Observe(seconds)
}

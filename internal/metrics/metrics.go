package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_received_total",
		Help: "Total webhook events that passed signature verification, labelled by event type.",
	}, []string{"event_type"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_dropped_total",
		Help: "Total events acknowledged and dropped without a downstream call, labelled by event type.",
	}, []string{"event_type"})

	SignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_signature_failures_total",
		Help: "Total webhook deliveries rejected for an invalid signature.",
	})

	UpstreamFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_upstream_fetch_failures_total",
		Help: "Total events aborted because a provider re-fetch failed.",
	})

	ConversionsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_conversions_delivered_total",
		Help: "Total conversion events accepted by the ingestion API, labelled by conversion name.",
	}, []string{"event_name"})

	DeliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_delivery_failures_total",
		Help: "Total conversion events dropped after retry exhaustion, labelled by conversion name.",
	}, []string{"event_name"})

	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_delivery_duration_ms",
		Help:    "Wall-clock duration of a full delivery attempt sequence in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
)

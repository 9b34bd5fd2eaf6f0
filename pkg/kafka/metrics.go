package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "bookcatalog"

var (
	topicGroup = []string{"topic", "consumer_group"}

	consumerReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_consumer",
		Name:      "received_total",
		Help:      "Messages fetched from the broker.",
	}, topicGroup)

	consumerProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_consumer",
		Name:      "processed_total",
		Help:      "Messages handled successfully.",
	}, topicGroup)

	consumerFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_consumer",
		Name:      "failed_total",
		Help:      "Messages whose handler failed every retry.",
	}, topicGroup)

	consumerDuplicates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_consumer",
		Name:      "duplicates_total",
		Help:      "Events skipped because their id was already processed.",
	}, []string{"event_type"})

	consumerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_consumer",
		Name:      "handle_seconds",
		Help:      "Time spent handling one message, retries included.",
		Buckets:   prometheus.DefBuckets,
	}, topicGroup)

	consumerParked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_consumer",
		Name:      "dlq_total",
		Help:      "Messages parked on a dead-letter topic.",
	}, topicGroup)

	producerPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_producer",
		Name:      "published_total",
		Help:      "Events written to the broker.",
	}, []string{"topic"})

	producerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_producer",
		Name:      "errors_total",
		Help:      "Failed publish attempts.",
	}, []string{"topic"})

	producerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "kafka_producer",
		Name:      "publish_seconds",
		Help:      "Publish latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic"})
)

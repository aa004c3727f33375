package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics counts consumed messages. A nil *ConsumerMetrics is a
// valid no-op.
type ConsumerMetrics struct {
	processedTotal *prometheus.CounterVec
	failedTotal    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewConsumerMetrics creates consumer metrics and registers them with reg.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	labels := []string{"topic", "consumer_group"}
	m := &ConsumerMetrics{
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Total number of successfully processed Kafka messages",
		}, labels),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Total number of Kafka messages skipped after failing",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Duration of Kafka message handling including retries",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}
	reg.MustRegister(m.processedTotal, m.failedTotal, m.duration)
	return m
}

func (m *ConsumerMetrics) processed(topic, group string) {
	if m != nil {
		m.processedTotal.WithLabelValues(topic, group).Inc()
	}
}

func (m *ConsumerMetrics) failed(topic, group string) {
	if m != nil {
		m.failedTotal.WithLabelValues(topic, group).Inc()
	}
}

func (m *ConsumerMetrics) observe(topic, group string, d time.Duration) {
	if m != nil {
		m.duration.WithLabelValues(topic, group).Observe(d.Seconds())
	}
}

package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DeadLetterTopicPrefix prefixes the topics that park messages a consumer
// gave up on.
const DeadLetterTopicPrefix = TopicPrefix + ".dlq"

// DeadLetterTopic returns the dead-letter topic for topic, such as
// "ecommerce.dlq.ecommerce.user.deleted".
func DeadLetterTopic(topic string) string {
	return DeadLetterTopicPrefix + "." + topic
}

// DeadLetterQueue parks undecodable or repeatedly failing messages with
// their origin in the headers, so they can be inspected and replayed.
type DeadLetterQueue struct {
	writer messageWriter
	logger *slog.Logger
}

// NewDeadLetterQueue creates a dead-letter writer on brokers.
func NewDeadLetterQueue(brokers []string, logger *slog.Logger) *DeadLetterQueue {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              1,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newDeadLetterQueue(w, logger)
}

func newDeadLetterQueue(w messageWriter, logger *slog.Logger) *DeadLetterQueue {
	return &DeadLetterQueue{writer: w, logger: logger}
}

// Park copies msg, read from topic by group, to the dead-letter topic.
func (d *DeadLetterQueue) Park(ctx context.Context, topic, group string, msg kafka.Message, cause error) error {
	dlqTopic := DeadLetterTopic(topic)

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(group)},
	)
	if cause != nil {
		headers = append(headers, kafka.Header{Key: "dlq.error", Value: []byte(cause.Error())})
	}

	err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic:   dlqTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", dlqTopic, err)
	}

	d.logger.WarnContext(ctx, "message parked in dead-letter topic",
		slog.String("dlq_topic", dlqTopic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("consumer_group", group),
	)
	return nil
}

// Close closes the writer.
func (d *DeadLetterQueue) Close() error {
	return d.writer.Close()
}

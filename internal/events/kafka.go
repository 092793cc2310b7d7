package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"bloodlink/internal/config"
	"bloodlink/internal/metrics"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const closeFlushTimeoutMs = 10000

// KafkaPublisher produces events to a Kafka topic
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewKafkaPublisher creates an idempotent producer for cfg.DonationEventsTopic.
// Delivery reports are recorded on m, which may be nil.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger, m *metrics.Metrics) (*KafkaPublisher, error) {
	producerConfig := &kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Brokers,
		"enable.idempotence":                    true,
		"acks":                                  cfg.Acks,
		"max.in.flight.requests.per.connection": 5,
		"retries":                               2147483647,
	}

	p, err := kafka.NewProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	publisher := &KafkaPublisher{
		producer: p,
		topic:    cfg.DonationEventsTopic,
		logger:   logger,
		metrics:  m,
	}

	go publisher.handleDeliveryReports()

	logger.Info("Kafka producer initialized",
		"brokers", cfg.Brokers,
		"topic", cfg.DonationEventsTopic)

	return publisher, nil
}

// buildMessage encodes event as a message keyed by donation id, so all
// events of one donation land on the same partition
func buildMessage(topic string, event Event) (*kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.DonationID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

// Publish enqueues the event. Delivery is reported asynchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(p.topic, event)
	if err != nil {
		return err
	}

	if err := p.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	p.logger.Debug("Donation event published",
		"topic", p.topic,
		"type", event.Type,
		"donation_id", event.DonationID)

	return nil
}

func (p *KafkaPublisher) handleDeliveryReports() {
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			p.recordDelivery(ev)
		case kafka.Error:
			p.logger.Warn("Kafka client error", "error", ev.Error())
		}
	}
}

func (p *KafkaPublisher) recordDelivery(msg *kafka.Message) {
	eventType := headerValue(msg, "event-type")
	p.metrics.EventDelivered(eventType, msg.TopicPartition.Error)

	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}
	if msg.TopicPartition.Error != nil {
		p.logger.Error("Delivery failed",
			"topic", topic,
			"type", eventType,
			"donation_id", string(msg.Key),
			"error", msg.TopicPartition.Error)
		return
	}
	p.logger.Debug("Message delivered",
		"topic", topic,
		"partition", msg.TopicPartition.Partition,
		"offset", msg.TopicPartition.Offset)
}

func headerValue(msg *kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Close flushes outstanding messages and closes the producer
func (p *KafkaPublisher) Close() {
	p.logger.Info("Closing Kafka producer...")

	if remaining := p.producer.Flush(closeFlushTimeoutMs); remaining > 0 {
		p.logger.Error("Some messages were not delivered", "count", remaining)
	}

	p.producer.Close()
	p.logger.Info("Kafka producer closed")
}

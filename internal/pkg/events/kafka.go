package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"staybook/internal/pkg/logger"
)

// Kafka publishes events to "<prefix>.<aggregate>" topics, keyed by aggregate id.
type Kafka struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

func NewKafka(brokers []string, topicPrefix string, cfg *sarama.Config) (*Kafka, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Net.MaxOpenRequests = 1
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaWithProducer(producer, topicPrefix), nil
}

func NewKafkaWithProducer(p sarama.SyncProducer, topicPrefix string) *Kafka {
	return &Kafka{producer: p, topicPrefix: topicPrefix}
}

// Topic maps "booking.created" to "<prefix>.booking".
func (k *Kafka) Topic(eventType string) string {
	aggregate, _, _ := strings.Cut(eventType, ".")
	if k.topicPrefix == "" {
		return aggregate
	}
	return k.topicPrefix + "." + aggregate
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	headers := []sarama.RecordHeader{{Key: []byte("event-type"), Value: []byte(e.Type)}}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte("request-id"), Value: []byte(id)})
	}
	msg := &sarama.ProducerMessage{
		Topic:   k.Topic(e.Type),
		Key:     sarama.StringEncoder(e.Key),
		Value:   sarama.ByteEncoder(payload),
		Headers: headers,
	}
	_, _, err = k.producer.SendMessage(msg)
	return err
}

func (k *Kafka) Close() error {
	if k.producer == nil {
		return nil
	}
	return k.producer.Close()
}

var _ Publisher = (*Kafka)(nil)

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// OutboundMessage is the record published by KafkaGateway.
type OutboundMessage struct {
	StoreRef string    `json:"store_ref"`
	Phone    string    `json:"phone"`
	Text     string    `json:"text"`
	QueuedAt time.Time `json:"queued_at"`
}

// KafkaGateway publishes each message to a topic and returns once the
// brokers acknowledged it. Records are keyed by phone so messages to one
// customer stay ordered within a partition.
type KafkaGateway struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewKafkaConfig returns the producer configuration KafkaGateway expects.
func NewKafkaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 10 * time.Second
	cfg.Net.WriteTimeout = 10 * time.Second
	return cfg
}

// DialKafkaGateway connects a sync producer to a comma separated broker list.
func DialKafkaGateway(brokerList, topic string) (*KafkaGateway, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka gateway: empty topic")
	}
	var brokers []string
	for _, b := range strings.Split(brokerList, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka gateway: no brokers configured")
	}

	producer, err := sarama.NewSyncProducer(brokers, NewKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka gateway: create producer: %w", err)
	}
	return NewKafkaGateway(producer, topic), nil
}

func NewKafkaGateway(producer sarama.SyncProducer, topic string) *KafkaGateway {
	return &KafkaGateway{
		producer: producer,
		topic:    topic,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (g *KafkaGateway) SendText(ctx context.Context, storeRef, phone, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(OutboundMessage{
		StoreRef: storeRef,
		Phone:    phone,
		Text:     text,
		QueuedAt: g.now(),
	})
	if err != nil {
		return fmt.Errorf("kafka gateway: marshal message: %w", err)
	}

	_, _, err = g.producer.SendMessage(&sarama.ProducerMessage{
		Topic: g.topic,
		Key:   sarama.StringEncoder(phone),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("store_ref"), Value: []byte(storeRef)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka gateway: publish to %s: %w", g.topic, err)
	}
	return nil
}

func (g *KafkaGateway) Close() error {
	if g.producer == nil {
		return nil
	}
	return g.producer.Close()
}

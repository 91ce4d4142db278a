// Package events publishes checkout events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
)

// DefaultTopic receives every checkout event.
const DefaultTopic = "molino.checkout"

// Config controls the Kafka producer. No brokers disables publishing.
type Config struct {
	Brokers []string `usage:"Kafka brokers for checkout events"`
	Topic   string   `default:"molino.checkout" usage:"Kafka topic for checkout events"`
}

// Enabled reports whether brokers are configured.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

// Publisher implements checkout.Notifier on a Kafka sync producer.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

var _ checkout.Notifier = (*Publisher)(nil)

// NewPublisher dials brokers.
func NewPublisher(cfg Config) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "create producer")
	}
	return NewPublisherWithProducer(producer, cfg.Topic), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{producer: producer, topic: topic}
}

// Notify publishes e keyed by order id.
func (p *Publisher) Notify(ctx context.Context, e checkout.Event) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.OrderID),
		Value: sarama.ByteEncoder(Encode(e)),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "publish %s for order %q", e.Type, e.OrderID)
	}

	zctx.From(ctx).Debug("Event published",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("order_id", e.OrderID),
		zap.String("type", string(e.Type)),
	)
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

// Encode renders e as the JSON event payload.
func Encode(e checkout.Event) []byte {
	enc := jx.Encoder{}
	enc.ObjStart()
	enc.FieldStart("type")
	enc.Str(string(e.Type))
	enc.FieldStart("orderId")
	enc.Str(e.OrderID)
	enc.FieldStart("at")
	enc.Str(e.At.UTC().Format(time.RFC3339Nano))

	if r := e.Receipt; r != nil {
		enc.FieldStart("paymentId")
		enc.Str(r.PaymentID)
		enc.FieldStart("status")
		enc.Str(r.Status)
		enc.FieldStart("amount")
		r.Amount.Encode(&enc)
		enc.FieldStart("orderState")
		enc.Str(r.OrderState)
	}

	enc.FieldStart("customer")
	enc.ObjStart()
	enc.FieldStart("name")
	enc.Str(e.Customer.DisplayName())
	enc.FieldStart("email")
	enc.Str(e.Customer.Email)
	enc.ObjEnd()

	enc.FieldStart("items")
	enc.ArrStart()
	for _, it := range e.Items {
		enc.ObjStart()
		enc.FieldStart("catalogObjectId")
		enc.Str(it.CatalogObjectID)
		enc.FieldStart("name")
		enc.Str(it.Name)
		enc.FieldStart("quantity")
		enc.Int(it.Quantity)
		enc.ObjEnd()
	}
	enc.ArrEnd()

	if e.Reason != "" {
		enc.FieldStart("reason")
		enc.Str(e.Reason)
	}
	enc.ObjEnd()
	return enc.Bytes()
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotscheduler/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "scheduler.activity"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by subject id so the
// events of one slot or booking stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	brokers = kafkax.SplitBrokers(brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := message(ctx, ev)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func message(ctx context.Context, ev Event) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	key := ev.SubjectID
	if key == "" {
		key = ev.ID
	}
	headers := kafkax.EventMeta{EventID: ev.ID, EventType: string(ev.Type)}.Headers()
	return kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: kafkax.InjectTraceHeaders(ctx, headers),
		Time:    ev.OccurredAt,
	}, nil
}

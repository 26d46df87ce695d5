package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by user ID, so every event of
// one user lands on the same partition in commit order.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           2 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(int(ev.UserID))),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Relay consumes the event topic and hands every event to a local sink.
// Each server instance runs its own consumer group so that every instance
// sees every event, e.g. to feed its own WebSocket clients.
type Relay struct {
	reader messageReader
	sink   Publisher
}

func NewKafkaReader(brokers []string, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "cantina-relay-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
	})
}

func NewRelay(reader messageReader, sink Publisher) *Relay {
	return &Relay{reader: reader, sink: sink}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	log.Info("event relay started")
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("event relay stopped")
				return
			}
			log.WithError(err).Warn("read event")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.WithError(err).WithField("offset", msg.Offset).Warn("decode event")
			continue
		}

		if err := r.sink.Publish(ctx, ev); err != nil {
			log.WithError(err).WithField("event", ev.Type).Warn("relay event")
		}
	}
}

func (r *Relay) Close() error {
	return r.reader.Close()
}

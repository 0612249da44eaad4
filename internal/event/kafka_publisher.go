package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go-pos-inventory/internal/metrics"
	"go-pos-inventory/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes events asynchronously; delivery errors are logged
// from the writer's completion callback.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, m *metrics.Metrics) *KafkaPublisher {
	log := logger.With("sink", "kafka", "topic", cfg.Topic)
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for range messages {
				m.EventDropped("kafka")
			}
			log.Error("deliver stock events to kafka", "count", len(messages), "error", err)
		},
	}

	log.Info("kafka publisher created", "brokers", cfg.Brokers)
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.log.Error("marshal event", "type", evt.Type, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(evt.Key()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}
	// Async writer: this only enqueues.
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.log.Error("enqueue kafka event", "type", evt.Type, "error", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Package outbox relays reservation events committed to the ledger onto Kafka.
// Events are published at least once; consumers deduplicate on event_id.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"reservo/internal/domain"
	"reservo/internal/store"
	"reservo/internal/telemetry"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Config struct {
	PollEvery time.Duration
	BatchSize int
}

type Publisher struct {
	outbox    store.Outbox
	writer    MessageWriter
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
}

func NewPublisher(outbox store.Outbox, writer MessageWriter, logger *slog.Logger, cfg Config) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		outbox:    outbox,
		writer:    writer,
		logger:    logger.With(slog.String("component", "outbox")),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

// Run polls until ctx is cancelled. Publish failures are logged and retried on
// the next tick.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	p.logger.Info("outbox publisher started", slog.Duration("poll_every", p.pollEvery), slog.Int("batch_size", p.batchSize))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox publisher stopped")
			return
		case <-ticker.C:
			if _, err := p.PublishOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("outbox publish failed", slog.Any("err", err))
			}
		}
	}
}

// PublishOnce drains up to one batch and returns how many events were sent.
func (p *Publisher) PublishOnce(ctx context.Context) (int, error) {
	return p.outbox.PublishPending(ctx, p.batchSize, func(ctx context.Context, events []domain.ReservationEvent) error {
		msgs := make([]kafka.Message, 0, len(events))
		for _, ev := range events {
			msgs = append(msgs, message(ctx, ev))
		}
		return p.writer.WriteMessages(ctx, msgs...)
	})
}

func message(ctx context.Context, ev domain.ReservationEvent) kafka.Message {
	msg := kafka.Message{
		Topic: ev.EventType,
		Key:   []byte(ev.ReservationID.String()),
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(strconv.FormatInt(ev.ID, 10))},
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}
	msgCtx := telemetry.ContextWithTraceContext(ctx, ev.Traceparent, ev.Tracestate)
	carrier := &headerCarrier{headers: msg.Headers}
	otel.GetTextMapPropagator().Inject(msgCtx, carrier)
	msg.Headers = carrier.headers
	return msg
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func ReadyCheck(brokers []string) func(context.Context) error {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return errors.New("kafka brokers not configured")
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// Package notify publishes domain events to the external notification
// fan-out. Emission happens after the owning transaction committed, is best
// effort and at most once: failures are logged and dropped.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// messageWriter is the slice of kafka.Writer the emitter needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter writes every event to a single topic, keyed by event name,
// with the name duplicated in an event_type header for subscribers that
// route without decoding the payload.
type KafkaEmitter struct {
	writer messageWriter
	logger *zap.Logger
}

func NewKafkaEmitter(brokers []string, topic string, logger *zap.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (e *KafkaEmitter) Emit(ctx context.Context, name string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("marshal event payload", zap.String("event", name), zap.Error(err))
		return
	}

	headers := injectTraceContext(ctx, []kafka.Header{
		{Key: "event_type", Value: []byte(name)},
	})

	// The surrounding request may already be done; the commit the event
	// describes happened regardless, so emission gets its own deadline.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:     []byte(name),
		Value:   body,
		Headers: headers,
	}
	if err := e.writer.WriteMessages(wctx, msg); err != nil {
		e.logger.Warn("event emission failed", zap.String("event", name), zap.Error(err))
		return
	}
	e.logger.Debug("event emitted", zap.String("event", name))
}

func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

// injectTraceContext copies the active trace context into Kafka headers so
// subscribers can continue the trace.
func injectTraceContext(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

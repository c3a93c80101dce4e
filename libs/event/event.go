// Package event defines the messages the rail emits onto its kafka bus
// and the publisher used to emit them. Every message is wrapped in the
// same envelope so downstream consumers can dedupe on message_id without
// knowing the payload shape.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	uuid "github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/corridor-intl/rail-go/libs/kafka"
	"github.com/corridor-intl/rail-go/libs/logging"
)

// Topics the rail publishes to.
const (
	TopicPaymentInitiated  = "payment.initiated"
	TopicPaymentCancelled  = "payment.cancelled"
	TopicBatchClosed       = "settlement.batch_closed"
	TopicModeChanged       = "risk.mode_changed"
	TopicAssessmentDone    = "risk.assessment_completed"
	TopicQuoteGenerated    = "liquidity.quote_generated"
	TopicQuoteExecuted     = "liquidity.quote_executed"
	TopicReservesGenerated = "reports.proof_of_reserves_generated"

	// TopicScreeningDeadLetter receives payment.initiated messages the
	// screening consumer could not process, so wedged payments stay visible.
	TopicScreeningDeadLetter = "payment.screening.dlq"
)

type (
	// Message is the envelope wrapping every payload put on the bus.
	Message struct {
		MessageID uuid.UUID       `json:"message_id"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
)

// NewMessage returns a new event.Message wrapping the given payload.
func NewMessage(payload interface{}) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("event message: error marshalling payload: %w", err)
	}
	return &Message{
		MessageID: uuid.New(),
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}, nil
}

// NewMessageFromBytes returns a new event.Message deserialized from the given data.
func NewMessageFromBytes(data []byte) (*Message, error) {
	message := new(Message)
	err := json.Unmarshal(data, message)
	if err != nil {
		return nil, fmt.Errorf("event message: error unmarshalling message: %w", err)
	}
	return message, nil
}

// Publisher emits rail events onto a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// KafkaPublisher is a Publisher writing to kafka, one writer per topic.
type KafkaPublisher struct {
	mu      sync.Mutex
	initCtx context.Context
	writers map[string]*kafkago.Writer
}

// NewKafkaPublisher creates a publisher which lazily opens a writer the
// first time each topic is published to. The passed context must carry
// the kafka broker list.
func NewKafkaPublisher(ctx context.Context) *KafkaPublisher {
	return &KafkaPublisher{
		initCtx: ctx,
		writers: map[string]*kafkago.Writer{},
	}
}

func (p *KafkaPublisher) writer(topic string) (*kafkago.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w, nil
	}

	w, _, err := kafka.InitKafkaWriter(p.initCtx, topic)
	if err != nil {
		return nil, fmt.Errorf("event publisher: failed to init writer for %s: %w", topic, err)
	}
	p.writers[topic] = w
	return w, nil
}

// Publish wraps payload in a Message envelope and writes it to topic,
// keyed by the envelope message id.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	message, err := NewMessage(payload)
	if err != nil {
		return err
	}

	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("event publisher: error marshalling envelope: %w", err)
	}

	w, err := p.writer(topic)
	if err != nil {
		return err
	}

	return w.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(message.MessageID.String()),
		Value: value,
	})
}

// Close closes all topic writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("event publisher: error closing writer for %s: %w", topic, err)
		}
	}
	p.writers = map[string]*kafkago.Writer{}
	return firstErr
}

// LogPublisher is a Publisher for environments with no broker configured,
// it logs the envelope and drops it.
type LogPublisher struct{}

// Publish logs the would-be message at debug and discards it.
func (LogPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	message, err := NewMessage(payload)
	if err != nil {
		return err
	}
	logging.Logger(ctx, "event.LogPublisher").Debug().
		Str("topic", topic).
		Str("message_id", message.MessageID.String()).
		RawJSON("payload", message.Payload).
		Msg("dropping event, no broker configured")
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }

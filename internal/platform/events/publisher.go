// Package events publishes question result changes to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/platform/metrics"
)

// Publisher is a question.Notifier that can be shut down.
type Publisher interface {
	question.Notifier
	Close() error
}

// envelope is the wire form of a change event.
type envelope struct {
	question.Change
	OccurredAt time.Time `json:"occurred_at"`
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each change as one message keyed by session so a
// session's changes stay ordered within a partition. The broker writer is
// asynchronous; delivery failures surface through the completion callback.
type KafkaPublisher struct {
	w      messageWriter
	logger zerolog.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	p := newKafkaPublisher(nil, logger)
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

func newKafkaPublisher(w messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{w: w, logger: logger, now: time.Now}
}

func (p *KafkaPublisher) Notify(ctx context.Context, c question.Change) error {
	value, err := json.Marshal(envelope{Change: c, OccurredAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(c.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "question_code", Value: []byte(fmt.Sprint(c.Code))},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		metrics.RecordPublishFailure()
		p.logger.Error().Err(err).Str("session_id", c.SessionID).Int("question_code", c.Code).Msg("publish result change")
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// completed receives the outcome of each async batch.
func (p *KafkaPublisher) completed(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		metrics.RecordPublishFailure()
		evt := p.logger.Error().Err(err).Str("session_id", string(m.Key))
		for _, h := range m.Headers {
			if h.Key == "question_code" {
				evt = evt.Str("question_code", string(h.Value))
			}
		}
		evt.Msg("deliver result change")
	}
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// LogPublisher writes changes to the structured log. It is used when no
// broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Notify(_ context.Context, c question.Change) error {
	evt := p.logger.Info().
		Str("session_id", c.SessionID).
		Int("question_code", c.Code).
		Str("fingerprint", c.Fingerprint)
	if c.Result == nil {
		evt.Bool("incomplete", true).Msg("question result changed")
		return nil
	}
	evt.
		Strs("clinic", c.Result.Clinic).
		Strs("symptoms", c.Result.Symptoms).
		Bool("is_refer_case", c.Result.IsReferCase).
		Msg("question result changed")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

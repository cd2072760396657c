// Package notify publishes post-commit claim events for the notification
// dispatcher and the external calendar sync. Delivery is best-effort: a
// failed publish is logged by the caller and never rolls back a claim.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/garageops/reserva/internal/domain"
)

// DispatcherConfig configures the Kafka claim-event publisher.
type DispatcherConfig struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string

	// Topic receives claim.committed events for the notification workers
	// (email/WhatsApp/receipt senders live downstream).
	Topic string

	// CalendarTopic receives booking events for the external scheduling
	// sync. Empty disables calendar publishing.
	CalendarTopic string

	// MaxAttempts is how many times a publish is retried on transient
	// error. Defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout for writes. Defaults to 10s.
	WriteTimeout time.Duration
}

// messageWriter is the slice of kafka.Writer the dispatcher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher wraps a kafka-go Writer with simple publish-with-retries
// behavior. Messages are keyed by claim ID so per-claim ordering holds
// within a partition.
type KafkaDispatcher struct {
	writer        messageWriter
	topic         string
	calendarTopic string
	maxAttempts   int
	sleep         func(time.Duration)
}

func NewKafkaDispatcher(cfg DispatcherConfig) (*KafkaDispatcher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})

	return &KafkaDispatcher{
		writer:        w,
		topic:         cfg.Topic,
		calendarTopic: cfg.CalendarTopic,
		maxAttempts:   cfg.MaxAttempts,
		sleep:         time.Sleep,
	}, nil
}

// ClaimEvent is the wire payload consumed by notification workers.
type ClaimEvent struct {
	EventType  string          `json:"eventType"`
	ClaimID    string          `json:"claimId"`
	Kind       string          `json:"kind"`
	TicketNo   int             `json:"ticketNo,omitempty"`
	ResourceID string          `json:"resourceId,omitempty"`
	Start      *time.Time      `json:"start,omitempty"`
	End        *time.Time      `json:"end,omitempty"`
	Claimant   domain.Claimant `json:"claimant"`
	Amount     int64           `json:"amount"`
	Currency   string          `json:"currency"`
	TS         time.Time       `json:"ts"`
}

// ClaimCommitted publishes the claim to the notification topic and, for
// bookings, to the calendar topic as well.
func (d *KafkaDispatcher) ClaimCommitted(ctx context.Context, claim domain.Claim) error {
	ev := ClaimEvent{
		EventType:  "claim.committed",
		ClaimID:    claim.ID.String(),
		Kind:       string(claim.Kind),
		TicketNo:   claim.TicketNo,
		ResourceID: claim.ResourceID,
		Claimant:   claim.Claimant,
		Amount:     claim.Amount,
		Currency:   claim.Currency,
		TS:         claim.CreatedAt,
	}
	if claim.Kind == domain.ClaimKindBooking {
		start, end := claim.Start, claim.End
		ev.Start, ev.End = &start, &end
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal claim event: %w", err)
	}

	if err := d.publish(ctx, d.topic, claim.ID.String(), payload); err != nil {
		return err
	}
	if claim.Kind == domain.ClaimKindBooking && d.calendarTopic != "" {
		return d.publish(ctx, d.calendarTopic, claim.ResourceID, payload)
	}
	return nil
}

func (d *KafkaDispatcher) publish(ctx context.Context, topic, key string, payload []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	}
	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := d.writer.WriteMessages(ctx, msg); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			d.sleep(backoff)
			if backoff < 2*time.Second {
				backoff *= 2
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("publish to %s after %d attempts: %w", topic, d.maxAttempts, lastErr)
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

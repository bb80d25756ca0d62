// Package events consumes settings-updated notifications from RabbitMQ and
// drops the affected organization's cached settings.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ignite/outreach-timeline/internal/pkg/logger"
)

// RoutingKeySettingsUpdated is published whenever an organization's
// outreach settings document changes.
const RoutingKeySettingsUpdated = "settings.updated"

const handlerTimeout = 10 * time.Second

// SettingsUpdated is the message body.
type SettingsUpdated struct {
	OrganizationID string `json:"organization_id"`
}

// Invalidator drops cached settings for an organization.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID string) error
}

// Config configures the subscriber.
type Config struct {
	URL      string
	Exchange string
	Queue    string
	Workers  int
	Prefetch int
	// DialAttempts and DialDelay control connection retries at startup.
	DialAttempts int
	DialDelay    time.Duration
}

// Subscriber binds a durable queue to the settings exchange and processes
// deliveries on a fixed pool of workers.
type Subscriber struct {
	cfg         Config
	invalidator Invalidator
	conn        *amqp.Connection
	ch          *amqp.Channel
	consumerTag string
	wg          sync.WaitGroup
	startOnce   sync.Once
	closeOnce   sync.Once
}

// NewSubscriber connects to RabbitMQ and declares the topic exchange.
func NewSubscriber(ctx context.Context, cfg Config, inv Invalidator) (*Subscriber, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = cfg.Workers * 2
	}

	conn, err := DialWithRetry(ctx, cfg.URL, cfg.DialAttempts, cfg.DialDelay)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &Subscriber{
		cfg:         cfg,
		invalidator: inv,
		conn:        conn,
		ch:          ch,
		consumerTag: "outreach-timeline-" + cfg.Queue,
	}, nil
}

// Start declares and binds the queue and launches the workers. Calling it
// more than once is a no-op.
func (s *Subscriber) Start() error {
	var startErr error
	s.startOnce.Do(func() {
		if err := s.ch.Qos(s.cfg.Prefetch, 0, false); err != nil {
			startErr = fmt.Errorf("set qos: %w", err)
			return
		}
		q, err := s.ch.QueueDeclare(s.cfg.Queue, true, false, false, false, nil)
		if err != nil {
			startErr = fmt.Errorf("declare queue %s: %w", s.cfg.Queue, err)
			return
		}
		if err := s.ch.QueueBind(q.Name, RoutingKeySettingsUpdated, s.cfg.Exchange, false, nil); err != nil {
			startErr = fmt.Errorf("bind queue %s: %w", q.Name, err)
			return
		}
		deliveries, err := s.ch.Consume(q.Name, s.consumerTag, false, false, false, false, nil)
		if err != nil {
			startErr = fmt.Errorf("consume %s: %w", q.Name, err)
			return
		}

		for i := 0; i < s.cfg.Workers; i++ {
			s.wg.Add(1)
			go s.worker(deliveries)
		}
		logger.Info("settings subscriber started", "queue", q.Name, "exchange", s.cfg.Exchange, "workers", s.cfg.Workers)
	})
	return startErr
}

func (s *Subscriber) worker(deliveries <-chan amqp.Delivery) {
	defer s.wg.Done()
	for d := range deliveries {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		Handle(ctx, s.invalidator, d)
		cancel()
	}
}

// Close stops consuming, waits for in-flight messages and closes the
// connection.
func (s *Subscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		// Cancel closes the deliveries channel once buffered messages drain.
		if cerr := s.ch.Cancel(s.consumerTag, false); cerr != nil {
			logger.Warn("cancel consumer", "error", cerr)
		}
		s.wg.Wait()
		_ = s.ch.Close()
		err = s.conn.Close()
	})
	return err
}

// Outcome is what Handle did with a delivery.
type Outcome int

const (
	Acked Outcome = iota
	Rejected
	Requeued
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Acked:
		return "acked"
	case Rejected:
		return "rejected"
	case Requeued:
		return "requeued"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// ErrMalformed marks a message that can never be processed.
var ErrMalformed = errors.New("malformed settings event")

// Decode parses a settings-updated body.
func Decode(body []byte) (SettingsUpdated, error) {
	var msg SettingsUpdated
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg.OrganizationID = strings.TrimSpace(msg.OrganizationID)
	if msg.OrganizationID == "" {
		return msg, fmt.Errorf("%w: organization_id is required", ErrMalformed)
	}
	return msg, nil
}

// Handle processes one delivery and settles it. Malformed messages are
// rejected without requeue. A failed invalidation is requeued once and
// dropped on redelivery.
func Handle(ctx context.Context, inv Invalidator, d amqp.Delivery) Outcome {
	msg, err := Decode(d.Body)
	if err != nil {
		logger.Warn("rejecting settings event", "routing_key", d.RoutingKey, "error", err)
		_ = d.Reject(false)
		return Rejected
	}

	if err := inv.Invalidate(ctx, msg.OrganizationID); err != nil {
		if d.Redelivered {
			logger.Error("dropping settings event after retry", "organization_id", msg.OrganizationID, "error", err)
			_ = d.Nack(false, false)
			return Dropped
		}
		logger.Warn("requeueing settings event", "organization_id", msg.OrganizationID, "error", err)
		_ = d.Nack(false, true)
		return Requeued
	}

	_ = d.Ack(false)
	return Acked
}

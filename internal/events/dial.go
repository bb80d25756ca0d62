package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ignite/outreach-timeline/internal/pkg/logger"
)

const maxDialDelay = 30 * time.Second

// dialFunc is replaced in tests.
var dialFunc = amqp.Dial

// DialWithRetry connects to RabbitMQ with exponential backoff, giving up
// after attempts tries or when ctx is cancelled.
func DialWithRetry(ctx context.Context, url string, attempts int, delay time.Duration) (*amqp.Connection, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := dialFunc(url)
		if err == nil {
			if i > 1 {
				logger.Info("rabbitmq connected", "attempt", i)
			}
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		sleep := backoff(delay, i)
		logger.Warn("rabbitmq dial failed", "attempt", i, "sleep", sleep, "error", err)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", attempts, lastErr)
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d <= 0 || d > maxDialDelay {
		return maxDialDelay
	}
	return d
}

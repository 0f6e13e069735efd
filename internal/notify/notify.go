// Package notify delivers voucher notifications to customers. Dispatch is
// best-effort: the purchase transaction has already committed when it runs,
// so failures are logged and never propagated.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultQueueKey is the redis list carrying pending notification jobs.
const DefaultQueueKey = "greenfees:notifications"

// VoucherIssued is the notification payload for a freshly minted voucher.
type VoucherIssued struct {
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	CustomerName  string    `json:"customer_name"`
	VoucherCode   string    `json:"voucher_code"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ValidUntil    time.Time `json:"valid_until"`
	SessionID     string    `json:"session_id,omitempty"`
}

// Dispatcher hands a notification to the delivery pipeline.
type Dispatcher interface {
	VoucherIssued(ctx context.Context, event VoucherIssued) error
}

// QueueDispatcher enqueues notification jobs on a redis list for the
// delivery worker to drain.
type QueueDispatcher struct {
	client *redis.Client
	queue  string
}

// NewQueueDispatcher constructs a QueueDispatcher. An empty queue name
// falls back to DefaultQueueKey.
func NewQueueDispatcher(client *redis.Client, queue string) *QueueDispatcher {
	if queue == "" {
		queue = DefaultQueueKey
	}
	return &QueueDispatcher{client: client, queue: queue}
}

// VoucherIssued pushes the event onto the notification queue.
func (d *QueueDispatcher) VoucherIssued(ctx context.Context, event VoucherIssued) error {
	payload, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		return fmt.Errorf("notify: marshal event: %w", errMarshal)
	}
	if errPush := d.client.LPush(ctx, d.queue, payload).Err(); errPush != nil {
		return fmt.Errorf("notify: enqueue event: %w", errPush)
	}
	return nil
}

// LogDispatcher records notifications in the log. Used when redis is not
// configured, and in tests.
type LogDispatcher struct{}

// VoucherIssued logs the event and reports success.
func (LogDispatcher) VoucherIssued(_ context.Context, event VoucherIssued) error {
	log.WithFields(log.Fields{
		"voucher_code":   event.VoucherCode,
		"customer_email": event.CustomerEmail,
	}).Info("notify: voucher issued, delivery queue disabled")
	return nil
}

// NewDispatcher returns a queue dispatcher when a redis client is
// available and a log dispatcher otherwise.
func NewDispatcher(client *redis.Client, queue string) Dispatcher {
	if client == nil {
		return LogDispatcher{}
	}
	return NewQueueDispatcher(client, queue)
}

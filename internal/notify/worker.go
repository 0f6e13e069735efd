package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Sender performs the actual customer-facing delivery of one notification.
// The production sender lives outside this service (email gateway); LogSender
// stands in when none is wired.
type Sender interface {
	SendVoucherIssued(ctx context.Context, event VoucherIssued) error
}

// LogSender logs deliveries instead of sending them.
type LogSender struct{}

// SendVoucherIssued logs the delivery and reports success.
func (LogSender) SendVoucherIssued(_ context.Context, event VoucherIssued) error {
	log.WithFields(log.Fields{
		"voucher_code":   event.VoucherCode,
		"customer_email": event.CustomerEmail,
	}).Info("notify: delivered voucher notification (log sender)")
	return nil
}

// Worker drains the notification queue and hands jobs to the sender.
// Failed jobs are logged and dropped; notification delivery must never
// block or fail a purchase.
type Worker struct {
	client  *redis.Client
	queue   string
	sender  Sender
	done    chan struct{}
	stopped chan struct{}
}

// NewWorker constructs a Worker over the given queue.
func NewWorker(client *redis.Client, queue string, sender Sender) *Worker {
	if queue == "" {
		queue = DefaultQueueKey
	}
	if sender == nil {
		sender = LogSender{}
	}
	return &Worker{
		client:  client,
		queue:   queue,
		sender:  sender,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run consumes jobs until Stop is called. It blocks and is meant to run in
// its own goroutine.
func (w *Worker) Run() {
	defer close(w.stopped)

	for {
		select {
		case <-w.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		values, errPop := w.client.BRPop(ctx, 2*time.Second, w.queue).Result()
		cancel()
		if errPop != nil {
			if errors.Is(errPop, redis.Nil) || errors.Is(errPop, context.DeadlineExceeded) {
				continue
			}
			log.WithError(errPop).Warn("notify: dequeue failed")
			select {
			case <-w.done:
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(values) < 2 {
			continue
		}

		var event VoucherIssued
		if errDecode := json.Unmarshal([]byte(values[1]), &event); errDecode != nil {
			log.WithError(errDecode).Warn("notify: malformed notification job dropped")
			continue
		}

		sendCtx, cancelSend := context.WithTimeout(context.Background(), 10*time.Second)
		if errSend := w.sender.SendVoucherIssued(sendCtx, event); errSend != nil {
			log.WithError(errSend).WithField("voucher_code", event.VoucherCode).Warn("notify: delivery failed")
		}
		cancelSend()
	}
}

// Stop signals the worker to exit and waits for it.
func (w *Worker) Stop() {
	close(w.done)
	<-w.stopped
}

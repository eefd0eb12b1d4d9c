package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/catalog"
	"backoffice/internal/log"
	"backoffice/internal/services"
)

// Processor is the part of services.OrderProcessor the worker drives.
type Processor interface {
	Process(ctx context.Context, orderID string) (services.OrderInsights, error)
	ProcessPending(ctx context.Context) (int, error)
}

// Consumer delivers order messages until ctx is cancelled.
type Consumer interface {
	ConsumeOrders(ctx context.Context, handler amqp.Handler) error
}

// OrderWorker processes orders announced on the queue. A periodic sweep picks
// up orders whose message was lost.
type OrderWorker struct {
	processor     Processor
	sweepInterval time.Duration
	logger        *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewOrderWorker(processor Processor, sweepInterval time.Duration, logger *log.Logger) *OrderWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &OrderWorker{
		processor:     processor,
		sweepInterval: sweepInterval,
		logger:        logger.WithComponent(log.ComponentWorker),
	}
}

// HandleOrderMessage processes one queued order. Orders deleted after being
// queued are acknowledged and dropped; any other failure is returned so the
// message is requeued.
func (w *OrderWorker) HandleOrderMessage(ctx context.Context, msg *amqp.OrderProcessMessage) error {
	w.logger.InfoContext(ctx, "Processing order message",
		log.FieldOrderID, msg.OrderID,
		"timestamp", msg.Timestamp)

	if _, err := w.processor.Process(ctx, msg.OrderID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			w.logger.WarnContext(ctx, "Order no longer exists, dropping message", log.FieldOrderID, msg.OrderID)
			return nil
		}
		return fmt.Errorf("process order %s: %w", msg.OrderID, err)
	}
	return nil
}

// StartupCheck processes any orders left pending while the worker was down.
func (w *OrderWorker) StartupCheck(ctx context.Context) error {
	n, err := w.processor.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("startup check: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending orders found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup check completed", log.FieldRecordCount, n)
	return nil
}

// Start begins the periodic sweep. Returns an error if already running.
func (w *OrderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("order worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stop, done := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stop, done)

	w.logger.InfoContext(ctx, "Order worker started", "sweep_interval", w.sweepInterval)
	return nil
}

// Stop signals the sweep and waits for it to finish. If ctx expires first the
// worker stays running and Stop may be called again.
func (w *OrderWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		w.logger.InfoContext(ctx, "Order worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Order worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	if w.doneCh == done {
		w.running = false
	}
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the sweep is currently running
func (w *OrderWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Run consumes messages until ctx is cancelled, with the sweep running
// alongside.
func (w *OrderWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = w.Stop(stopCtx)
	}()

	err := consumer.ConsumeOrders(ctx, w.HandleOrderMessage)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *OrderWorker) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if w.sweepInterval <= 0 {
		select {
		case <-stop:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.processor.ProcessPending(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Periodic sweep failed", log.FieldError, err)
				continue
			}
			if n > 0 {
				w.logger.InfoContext(ctx, "Periodic sweep processed orders", log.FieldRecordCount, n)
			}
		}
	}
}

// internal/app/system/mailer/async.go
package mailer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Async queues email for background delivery so request latency never
// depends on SMTP. A full queue drops the message with a warning.
type Async struct {
	sender  Sender
	log     *zap.Logger
	queue   chan Email
	timeout time.Duration

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewAsync starts workers goroutines draining a queue of size buffer.
func NewAsync(sender Sender, log *zap.Logger, workers, buffer int) *Async {
	if workers < 1 {
		workers = 1
	}
	a := &Async{
		sender:  sender,
		log:     log,
		queue:   make(chan Email, buffer),
		timeout: 30 * time.Second,
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.run()
	}
	return a
}

// Send enqueues e and reports whether it was accepted. It satisfies
// Sender so handlers can hold either implementation.
func (a *Async) Send(_ context.Context, e Email) error {
	a.Enqueue(e)
	return nil
}

// Enqueue adds e to the queue without blocking.
func (a *Async) Enqueue(e Email) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.Warn("email dropped after shutdown", zap.String("to", e.To), zap.String("subject", e.Subject))
		return false
	}
	select {
	case a.queue <- e:
		return true
	default:
		a.log.Warn("email queue full, dropping message", zap.String("to", e.To), zap.String("subject", e.Subject))
		return false
	}
}

func (a *Async) run() {
	defer a.wg.Done()
	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.sender.Send(ctx, e); err != nil {
			a.log.Error("email send failed",
				zap.String("to", e.To),
				zap.String("subject", e.Subject),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting mail and waits for the queue to drain or ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

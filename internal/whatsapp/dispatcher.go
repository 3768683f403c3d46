package whatsapp

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DetailShuttingDown is the Result detail for messages queued after Close.
const DetailShuttingDown = "dispatcher closed"

// Observer is told about every finished send. Metrics hook in here.
type Observer func(Result)

// Dispatcher sends acknowledgements in the background so a slow or failing
// provider never holds up a submission.
type Dispatcher struct {
	sender   Sender
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer

	mu      sync.Mutex
	pending int
	idle    chan struct{}
	closed  bool
}

// NewDispatcher wraps sender. A non-positive timeout defaults to 15s.
func NewDispatcher(sender Sender, timeout time.Duration, logger *slog.Logger, observer Observer) *Dispatcher {
	if sender == nil {
		sender = Disabled{}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	idle := make(chan struct{})
	close(idle)
	return &Dispatcher{sender: sender, timeout: timeout, logger: logger, observer: observer, idle: idle}
}

// Notify queues a message and returns immediately. After Close the message
// is dropped and observed as undelivered.
func (d *Dispatcher) Notify(to, text string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("acknowledgement dropped during shutdown", "to", to)
		d.observe(Result{Delivered: false, Detail: DetailShuttingDown})
		return
	}
	if d.pending == 0 {
		d.idle = make(chan struct{})
	}
	d.pending++
	d.mu.Unlock()

	go func() {
		defer d.done()
		d.observe(d.deliver(to, text))
	}()
}

func (d *Dispatcher) done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending--
	if d.pending == 0 {
		close(d.idle)
	}
}

func (d *Dispatcher) observe(res Result) {
	if d.observer != nil {
		d.observer(res)
	}
}

func (d *Dispatcher) deliver(to, text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("whatsapp sender panicked", "to", to, "panic", r)
			res = Result{Delivered: false, Detail: "sender panicked"}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	res = d.sender.Send(ctx, to, text)
	if res.Delivered {
		d.logger.Info("acknowledgement sent", "to", to, "detail", res.Detail)
	} else {
		d.logger.Warn("acknowledgement not sent", "to", to, "detail", res.Detail)
	}
	return res
}

// Wait blocks until no send is in flight or ctx is done. It may run
// alongside Notify.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for the ones in flight.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Wait(ctx)
}

package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type subscription struct {
	name    string
	handler Handler
}

type envelope struct {
	ctx   context.Context
	event Event
}

// Dispatcher delivers events to the handlers subscribed to their name. In
// async mode Publish only enqueues; handlers run on a fixed worker pool.
type Dispatcher struct {
	log *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]subscription
	queue    chan envelope
	closed   bool
	wg       sync.WaitGroup
}

// NewDispatcher starts workers goroutines reading from a queue of queueSize.
// workers <= 0 gives a synchronous dispatcher.
func NewDispatcher(log *zap.Logger, workers, queueSize int) *Dispatcher {
	d := &Dispatcher{log: log, handlers: map[string][]subscription{}}
	if workers <= 0 {
		return d
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d.queue = make(chan envelope, queueSize)
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func NewSyncDispatcher(log *zap.Logger) *Dispatcher {
	return NewDispatcher(log, 0, 0)
}

// Subscribe registers h for events named eventName. label identifies the
// handler in logs.
func (d *Dispatcher) Subscribe(eventName, label string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], subscription{name: label, handler: h})
}

// Publish never blocks on handlers in async mode. When the queue is full the
// event gets its own goroutine instead of being dropped.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	env := envelope{ctx: context.WithoutCancel(ctx), event: e}

	d.mu.RLock()
	if d.queue == nil || d.closed {
		d.mu.RUnlock()
		d.deliver(env)
		return
	}
	select {
	case d.queue <- env:
		d.mu.RUnlock()
	default:
		d.wg.Add(1)
		d.mu.RUnlock()
		d.log.Warn("event queue full, delivering out of band", zap.String("event", e.Name()))
		go func() {
			defer d.wg.Done()
			d.deliver(env)
		}()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for env := range d.queue {
		d.deliver(env)
	}
}

func (d *Dispatcher) deliver(env envelope) {
	d.mu.RLock()
	subs := d.handlers[env.event.Name()]
	d.mu.RUnlock()

	for _, sub := range subs {
		d.call(env, sub)
	}
}

func (d *Dispatcher) call(env envelope, sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panicked",
				zap.String("event", env.event.Name()),
				zap.String("handler", sub.name),
				zap.Any("panic", r),
			)
		}
	}()

	if err := sub.handler.Handle(env.ctx, env.event); err != nil {
		d.log.Error("event handler failed",
			zap.String("event", env.event.Name()),
			zap.String("handler", sub.name),
			zap.Error(err),
		)
	}
}

// Close stops accepting queued work and waits for pending deliveries or for
// ctx to end. Events published after Close are delivered synchronously.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.queue == nil || d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

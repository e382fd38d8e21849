// Package eventbus delivers post-commit events to subscribers on a worker
// pool. Every subscriber gets its own delivery of each event; a failing
// subscriber is retried and then logged, and never affects the publisher or
// the other subscribers.
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"well_bbs/internal/core/logger"
)

// Handler processes one event. Returning an error schedules a retry.
type Handler func(ctx context.Context, event any) error

// Config tunes the bus.
type Config struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	Clock        clockwork.Clock
	Registerer   prometheus.Registerer // nil leaves the delivery counter unregistered
}

type subscription struct {
	topic   string
	name    string
	handler Handler
}

type job struct {
	ctx   context.Context
	topic string
	event any
	sub   subscription
}

// Bus is an in-process asynchronous event bus.
type Bus struct {
	cfg      Config
	queue    chan job
	workers  sync.WaitGroup
	overflow sync.WaitGroup

	mu     sync.RWMutex
	subs   []subscription
	closed bool

	deliveries *prometheus.CounterVec
}

// New starts cfg.Workers workers.
func New(cfg Config) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	b := &Bus{
		cfg:   cfg,
		queue: make(chan job, cfg.QueueSize),
		deliveries: promauto.With(cfg.Registerer).NewCounterVec(prometheus.CounterOpts{
			Name: "well_eventbus_delivery_total",
			Help: "Event deliveries by subscriber and result.",
		}, []string{"subscriber", "result"}),
	}

	for i := 0; i < cfg.Workers; i++ {
		b.workers.Add(1)
		go func() {
			defer b.workers.Done()
			for j := range b.queue {
				b.deliver(j)
			}
		}()
	}
	return b
}

// Subscribe registers handler under name for topic.
func (b *Bus) Subscribe(topic, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{topic: topic, name: name, handler: handler})
}

// Publish queues event for every subscriber of topic and returns immediately.
// The request context's values are kept but its cancellation is not.
func (b *Bus) Publish(ctx context.Context, topic string, event any) {
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		logger.Warn("eventbus closed, event dropped", logger.String("topic", topic))
		return
	}

	for _, sub := range b.subs {
		if sub.topic != topic {
			continue
		}
		j := job{ctx: ctx, topic: topic, event: event, sub: sub}
		select {
		case b.queue <- j:
		default:
			logger.Warn("eventbus queue full, dispatching inline goroutine",
				logger.String("topic", topic),
				logger.String("subscriber", sub.name))
			b.overflow.Add(1)
			go func() {
				defer b.overflow.Done()
				b.deliver(j)
			}()
		}
	}
}

// Close stops accepting events, drains the queue and waits for in-flight deliveries.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.workers.Wait()
	b.overflow.Wait()
}

func (b *Bus) deliver(j job) {
	var err error
	for attempt := 1; attempt <= b.cfg.MaxAttempts; attempt++ {
		if err = b.invoke(j); err == nil {
			b.deliveries.WithLabelValues(j.sub.name, "ok").Inc()
			return
		}
		if attempt < b.cfg.MaxAttempts {
			b.deliveries.WithLabelValues(j.sub.name, "retry").Inc()
			b.cfg.Clock.Sleep(time.Duration(attempt) * b.cfg.RetryBackoff)
		}
	}

	b.deliveries.WithLabelValues(j.sub.name, "failed").Inc()
	logger.Error("event delivery failed",
		logger.String("topic", j.topic),
		logger.String("subscriber", j.sub.name),
		logger.Int("attempts", b.cfg.MaxAttempts),
		logger.String("error", err.Error()))
}

func (b *Bus) invoke(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return j.sub.handler(j.ctx, j.event)
}

package pubsub

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultDeliveryTimeout = 20 * time.Second

type Publisher[E any] interface {
	Publish(evt E)
}

type Subscriber[E any] interface {
	Subscribe(ctx context.Context) Subscription[E]
}

type Subscription[E any] interface {
	ResultChan() <-chan E
	Stop()
}

// PubSub fans events out to all subscribers in publication order.
// A subscriber that does not accept an event within the delivery timeout is removed.
type PubSub[E any] struct {
	DeliveryTimeout time.Duration
	BufferSize      int

	mutex         sync.RWMutex
	subscriptions map[int64]*subscription[E]
	seq           int64
	stopped       bool
}

func New[E any]() *PubSub[E] {
	return &PubSub[E]{
		DeliveryTimeout: DefaultDeliveryTimeout,
		BufferSize:      10,
		subscriptions:   map[int64]*subscription[E]{},
	}
}

func (p *PubSub[E]) Stop() {
	p.mutex.Lock()
	p.stopped = true
	subscriptions := make([]*subscription[E], 0, len(p.subscriptions))
	for _, s := range p.subscriptions {
		subscriptions = append(subscriptions, s)
	}
	p.mutex.Unlock()

	for _, s := range subscriptions {
		s.cancel()
	}
}

// Len returns the number of active subscriptions.
func (p *PubSub[E]) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return len(p.subscriptions)
}

func (p *PubSub[E]) Subscribe(ctx context.Context) Subscription[E] {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.stopped {
		return noopSubscription[E]("noop-subscription")
	}

	p.seq++

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription[E]{
		id:     p.seq,
		cancel: cancel,
		pubsub: p,
		ch:     make(chan E, p.BufferSize),
	}
	s.out = s.ch
	p.subscriptions[s.id] = s

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s
}

func (p *PubSub[E]) Publish(evt E) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.stopped {
		return
	}

	timeout := p.DeliveryTimeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}

	for _, s := range p.subscriptions {
		select {
		case s.ch <- evt:
		case <-time.After(timeout):
			slog.Warn("kicking subscriber since it timed out accepting the event", "subscription", s.id, "timeout", timeout)
			go s.cancel()
		}
	}
}

type subscription[E any] struct {
	pubsub *PubSub[E]
	id     int64
	cancel context.CancelFunc
	ch     chan E
	out    <-chan E
}

func (s *subscription[E]) Stop() {
	s.pubsub.mutex.Lock()
	delete(s.pubsub.subscriptions, s.id)
	ch := s.ch
	s.ch = nil
	s.pubsub.mutex.Unlock()

	if ch != nil {
		close(ch)
		s.cancel()
	}
}

func (s *subscription[E]) ResultChan() <-chan E {
	return s.out
}

type noopSubscription[E any] string

func (_ noopSubscription[E]) Stop() {}

func (_ noopSubscription[E]) ResultChan() <-chan E {
	return closedChan[E]()
}

func closedChan[E any]() <-chan E {
	ch := make(chan E)
	close(ch)
	return ch
}

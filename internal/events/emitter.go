// Package events provides typed, component-owned event emitters.
//
// Each component that raises a signal owns an Emitter for that signal's type and
// consumers subscribe to it directly. There is no global bus.
package events

import "sync"

// DefaultBuffer is the per-subscription channel capacity used by Subscribe.
const DefaultBuffer = 16

// Emitter fans out values of type T to its subscribers in emission order.
type Emitter[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription[T]
	nextID uint64
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{subs: make(map[uint64]*Subscription[T])}
}

// Subscription receives events on C until Close is called.
type Subscription[T any] struct {
	C <-chan T

	ch      chan T
	id      uint64
	emitter *Emitter[T]
	once    sync.Once
	handler func(T)
}

// Subscribe registers a channel subscription with DefaultBuffer capacity.
func (e *Emitter[T]) Subscribe() *Subscription[T] {
	return e.SubscribeBuffered(DefaultBuffer)
}

// SubscribeBuffered registers a channel subscription with the given capacity.
// A subscriber whose buffer is full drops the event rather than blocking the emitter.
func (e *Emitter[T]) SubscribeBuffered(size int) *Subscription[T] {
	if size < 1 {
		size = 1
	}
	ch := make(chan T, size)
	return e.add(&Subscription[T]{C: ch, ch: ch})
}

// Handle registers a callback invoked synchronously on the emitting goroutine.
func (e *Emitter[T]) Handle(fn func(T)) *Subscription[T] {
	return e.add(&Subscription[T]{handler: fn})
}

func (e *Emitter[T]) add(s *Subscription[T]) *Subscription[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[uint64]*Subscription[T])
	}
	e.nextID++
	s.id = e.nextID
	s.emitter = e
	e.subs[s.id] = s
	return s
}

// Emit delivers v to every current subscriber.
func (e *Emitter[T]) Emit(v T) {
	e.mu.RLock()
	targets := make([]*Subscription[T], 0, len(e.subs))
	for _, s := range e.subs {
		targets = append(targets, s)
	}
	e.mu.RUnlock()

	for _, s := range targets {
		s.deliver(v)
	}
}

// Len returns the number of active subscriptions.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

func (s *Subscription[T]) deliver(v T) {
	if s.handler != nil {
		s.handler(v)
		return
	}
	s.emitter.mu.RLock()
	_, live := s.emitter.subs[s.id]
	if live {
		select {
		case s.ch <- v:
		default:
		}
	}
	s.emitter.mu.RUnlock()
}

// Close unregisters the subscription. The channel is closed for channel subscriptions.
// Close is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.emitter.mu.Lock()
		delete(s.emitter.subs, s.id)
		s.emitter.mu.Unlock()
		if s.ch != nil {
			close(s.ch)
		}
	})
}

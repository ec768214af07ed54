// Package events is a small in-process publish/subscribe registry.
// Delivery is synchronous and best-effort: a failing or panicking
// subscriber never affects the publisher or the other subscribers.
package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var ErrSubscriberPanic = errors.New("subscriber panicked")

type Handler[P any] func(ctx context.Context, payload P) error

// Observer is told about every delivery attempt; err is nil on success.
type Observer func(ctx context.Context, subscriber string, err error)

// Subscription identifies one registered handler.
type Subscription struct {
	id   uuid.UUID
	name string
}

func (s Subscription) ID() string   { return s.id.String() }
func (s Subscription) Name() string { return s.name }

type subscriber[P any] struct {
	sub Subscription
	fn  Handler[P]
}

type Registry[P any] struct {
	mu        sync.RWMutex
	subs      []subscriber[P]
	observers []Observer
}

func NewRegistry[P any](observers ...Observer) *Registry[P] {
	return &Registry[P]{observers: observers}
}

// Subscribe registers fn under name. Handlers run in registration order.
// A nil fn is ignored and yields a zero Subscription.
func (r *Registry[P]) Subscribe(name string, fn Handler[P]) Subscription {
	if fn == nil {
		return Subscription{}
	}
	s := Subscription{id: uuid.New(), name: name}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, subscriber[P]{sub: s, fn: fn})
	return s
}

// Unsubscribe reports whether s was registered.
func (r *Registry[P]) Unsubscribe(s Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(s)
	if i < 0 {
		return false
	}
	r.subs = slices.Delete(r.subs, i, i+1)
	return true
}

func (r *Registry[P]) Has(s Subscription) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index(s) >= 0
}

func (r *Registry[P]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Registry[P]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = nil
}

func (r *Registry[P]) index(s Subscription) int {
	if s.id == uuid.Nil {
		return -1
	}
	return slices.IndexFunc(r.subs, func(sub subscriber[P]) bool { return sub.sub.id == s.id })
}

// Notify delivers payload to a snapshot of the current subscribers.
// Subscribers added or removed while Notify runs take effect on the next call.
func (r *Registry[P]) Notify(ctx context.Context, payload P) {
	r.mu.RLock()
	subs := slices.Clone(r.subs)
	r.mu.RUnlock()

	for _, s := range subs {
		err := deliver(ctx, s.fn, payload)
		for _, observe := range r.observers {
			report(ctx, observe, s.sub.name, err)
		}
	}
}

// report runs one observer. A panicking observer is skipped so the
// remaining observers and subscribers still run.
func report(ctx context.Context, observe Observer, subscriber string, err error) {
	defer func() { _ = recover() }()
	observe(ctx, subscriber, err)
}

func deliver[P any](ctx context.Context, fn Handler[P], payload P) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrSubscriberPanic, rec)
		}
	}()
	return fn(ctx, payload)
}

package pool

import (
	"fmt"

	"go.uber.org/zap"
)

// CreatedEvent is delivered to observers after a brand-new object has been
// constructed.
type CreatedEvent struct {
	// Pool is the pool that constructed the object. For a ShimmedPool built
	// with NewShimmed it is the shimmed pool.
	Pool any
	// Name is the pool name
	Name string
	// Count is the pool's object count right after the construction
	Count int
}

// Observer receives object-created notifications. Notifications are
// advisory and delivered synchronously on the constructing goroutine, so
// observers must not block.
type Observer interface {
	ObjectCreated(CreatedEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(CreatedEvent)

// ObjectCreated calls f(e).
func (f ObserverFunc) ObjectCreated(e CreatedEvent) {
	f(e)
}

// AddObserver subscribes o to object-created events of p.
func (p *Pool[T]) AddObserver(o Observer) {
	if o == nil {
		return
	}

	p.obsMu.Lock()
	defer p.obsMu.Unlock()

	var next []Observer
	if cur := p.observers.Load(); cur != nil {
		next = append(next, *cur...)
	}
	next = append(next, o)
	p.observers.Store(&next)
}

func (p *Pool[T]) notifyCreated(count int) {
	observers := p.observers.Load()
	if observers == nil {
		return
	}

	event := CreatedEvent{Pool: p.source, Name: p.name, Count: count}
	for _, o := range *observers {
		p.safeNotify(o, event)
	}
}

// safeNotify keeps an observer panic from reaching the caller of Use.
func (p *Pool[T]) safeNotify(o Observer, event CreatedEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("object created observer panicked",
				zap.String("panic", fmt.Sprint(r)),
				zap.Int("count", event.Count))
		}
	}()
	o.ObjectCreated(event)
}

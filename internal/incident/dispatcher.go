// Package incident provides the dispatcher that routes incidents to handlers
package incident

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Subscription binds one handler to one incident name
type Subscription struct {
	// ID uniquely identifies this subscription.
	ID      string
	Name    Name
	Handler Handler
}

// Dispatcher delivers incidents to registered handlers.
//
// Handlers for a name are called in registration order on the goroutine that
// calls Fire. Thread Safety: Dispatcher is safe for concurrent use.
type Dispatcher struct {
	mu            sync.RWMutex
	subscriptions map[Name][]*Subscription
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscriptions: make(map[Name][]*Subscription),
	}
}

// Register subscribes h to incidents named name.
// Registering the same handler twice for one name is an error.
func (d *Dispatcher) Register(name Name, h Handler) error {
	if name == "" {
		return errors.New("incident name is empty")
	}
	if h == nil {
		return fmt.Errorf("nil handler for %s", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subscriptions[name] {
		if sub.Handler == h {
			return fmt.Errorf("handler %s already registered for %s", h.Name(), name)
		}
	}

	d.subscriptions[name] = append(d.subscriptions[name], &Subscription{
		ID:      uuid.NewString(),
		Name:    name,
		Handler: h,
	})
	return nil
}

// Unregister removes h from incidents named name.
// Returns false if h was not registered; calling it twice is harmless.
func (d *Dispatcher) Unregister(name Name, h Handler) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subscriptions[name]
	for i, sub := range subs {
		if sub.Handler != h {
			continue
		}
		// Copy so concurrent Fire calls holding the old slice are unaffected.
		next := make([]*Subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(d.subscriptions, name)
		} else {
			d.subscriptions[name] = next
		}
		return true
	}
	return false
}

// Fire delivers inc to every handler registered for its name.
// All handlers run; their failures are joined into the returned error.
func (d *Dispatcher) Fire(inc Incident) error {
	if inc == nil {
		return errors.New("nil incident")
	}

	d.mu.RLock()
	subs := d.subscriptions[inc.IncidentName()]
	d.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Handler.Handle(inc); err != nil {
			errs = append(errs, &HandlerError{
				Handler:  sub.Handler.Name(),
				Incident: inc.IncidentName(),
				Err:      err,
			})
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of handlers registered for name
func (d *Dispatcher) Count(name Name) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscriptions[name])
}

// Subscriptions returns a copy of the subscriptions for name
func (d *Dispatcher) Subscriptions(name Name) []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Subscription, 0, len(d.subscriptions[name]))
	for _, sub := range d.subscriptions[name] {
		out = append(out, *sub)
	}
	return out
}

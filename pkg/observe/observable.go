// Package observe implements the TransferProcess lifecycle observable
// (spec §4.5): listeners are invoked synchronously after every
// successful state change, in the order the updates happened within a
// tick. A listener failure is logged and otherwise ignored.
package observe

import (
	"sync"

	"github.com/connectorhq/transferproc/pkg/monitor"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

// Listener is notified after a TransferProcess has been durably
// updated to a new state.
type Listener interface {
	Changed(p *transfer.TransferProcess)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(p *transfer.TransferProcess)

func (f ListenerFunc) Changed(p *transfer.TransferProcess) { f(p) }

// Observable is the TransferProcessObservable the manager's builder
// requires. It is safe for concurrent registration and notification.
type Observable struct {
	mu        sync.RWMutex
	listeners []Listener
	monitor   monitor.Monitor
}

func New(m monitor.Monitor) *Observable {
	return &Observable{monitor: m}
}

func (o *Observable) RegisterListener(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *Observable) UnregisterListener(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, existing := range o.listeners {
		if existing == l {
			o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
			return
		}
	}
}

// InvokeForEach notifies every registered listener, in registration
// order, that p successfully transitioned. Panics and errors from a
// listener are caught and logged; they never propagate to the caller
// and never affect scheduling.
func (o *Observable) InvokeForEach(p *transfer.TransferProcess) {
	o.mu.RLock()
	listeners := make([]Listener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.RUnlock()

	for _, l := range listeners {
		o.invokeSafely(l, p)
	}
}

func (o *Observable) invokeSafely(l Listener, p *transfer.TransferProcess) {
	defer func() {
		if r := recover(); r != nil && o.monitor != nil {
			o.monitor.Severe("observable_listener_panicked", "process_id", p.Id, "recovered", r)
		}
	}()
	l.Changed(p)
}

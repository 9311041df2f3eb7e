// Package dispatch implements the RemoteMessageDispatcherRegistry the
// REQUESTING handler uses to send a DataRequest to the remote peer
// connector (spec §4.1, §4.8): a protocol keyed dispatch table over
// Dispatcher implementations, with a NATS request-reply
// implementation as the reference transport.
package dispatch

import (
	"context"
	"fmt"
)

// SendOutcome is the value delivered on a Send future.
type SendOutcome struct {
	Reply []byte
	Err   error
}

// Dispatcher sends a message to a remote peer over one protocol and
// resolves with the peer's reply payload.
type Dispatcher interface {
	Send(ctx context.Context, subject string, payload []byte) <-chan SendOutcome
}

// Registry is the RemoteMessageDispatcherRegistry: one Dispatcher per
// protocol name.
type Registry struct {
	dispatchers map[string]Dispatcher
}

func NewRegistry() *Registry {
	return &Registry{dispatchers: make(map[string]Dispatcher)}
}

func (r *Registry) Register(protocol string, d Dispatcher) {
	r.dispatchers[protocol] = d
}

// Send resolves the dispatcher for protocol and starts sending. The
// scheduler never blocks on the returned channel, per the concurrency
// contract in spec §4.2/§5.
func (r *Registry) Send(ctx context.Context, protocol, subject string, payload []byte) <-chan SendOutcome {
	d, ok := r.dispatchers[protocol]
	if !ok {
		out := make(chan SendOutcome, 1)
		out <- SendOutcome{Err: fmt.Errorf("no dispatcher registered for protocol %q", protocol)}
		return out
	}
	return d.Send(ctx, subject, payload)
}

package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/nats-io/nats.go"
)

// NatsDispatcher sends a message to a remote peer connector over NATS
// request-reply. A timeout or "no responders" error propagates as a
// transient handler error per spec §7: the caller's process stays in
// REQUESTING for the next tick's retry.
type NatsDispatcher struct {
	conn    *nats.Conn
	timeout time.Duration
}

// NewNatsDispatcher connects to the given NATS URL.
func NewNatsDispatcher(url string, timeout time.Duration) (*NatsDispatcher, error) {
	slog.Info("nats_dispatcher_connect", "url", url)

	conn, err := nats.Connect(url)
	if err != nil {
		slog.Error("nats_connect_failed", "url", url, "error", err)
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}

	slog.Info("nats_dispatcher_connected", "url", url)
	return &NatsDispatcher{conn: conn, timeout: timeout}, nil
}

func (d *NatsDispatcher) Close() {
	d.conn.Close()
}

// Send publishes payload to subject and waits for a single reply,
// asynchronously: the goroutine owns the blocking NATS call, and the
// caller only ever touches the returned channel.
func (d *NatsDispatcher) Send(ctx context.Context, subject string, payload []byte) <-chan SendOutcome {
	out := make(chan SendOutcome, 1)

	go func() {
		reqCtx := ctx
		if d.timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		slog.Info("nats_dispatch_send", "subject", subject)

		msg, err := d.conn.RequestWithContext(reqCtx, subject, payload)
		if err != nil {
			slog.Warn("nats_dispatch_failed", "subject", subject, "error", err)
			out <- SendOutcome{Err: errors.Wrap(err, "failed to dispatch message")}
			return
		}

		slog.Info("nats_dispatch_acked", "subject", subject)
		out <- SendOutcome{Reply: msg.Data}
	}()

	return out
}

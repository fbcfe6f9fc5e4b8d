// Package tail implements Tail Fan-out: after a message is
// validated, the raw payload is delivered to every tailgator listed on the
// originating connection.
package tail

import (
	"context"
	"log/slog"

	"github.com/primus/primacron/internal/broadcast"
	"github.com/primus/primacron/internal/gatewayerr"
	"github.com/primus/primacron/internal/session"
)

// Sender delivers a raw payload to one peer connection. Satisfied by
// *broadcast.Peer in production.
type Sender interface {
	Send(ctx context.Context, peerURL, connID string, message any) (*broadcast.Result, error)
}

// FanOut delivers a validated message to every tailgator address on a
// connection record. Errors are logged, not surfaced — they do not affect
// the local delivery that already happened.
type FanOut struct {
	Sender  Sender
	OnError func(gatewayerr.Event)
}

// Deliver sends raw to every non-empty address in tailAddrs.
func (f *FanOut) Deliver(ctx context.Context, tailAddrs []string, raw string) {
	for _, addr := range tailAddrs {
		if addr == "" {
			continue
		}
		peerURL, connID, ok := session.ParseAddress(addr)
		if !ok {
			continue
		}
		if _, err := f.Sender.Send(ctx, peerURL, connID, raw); err != nil {
			if f.OnError != nil {
				f.OnError(gatewayerr.Event{
					Kind:    gatewayerr.KindDisconnect,
					Err:     err,
					Context: map[string]any{"address": addr},
				})
			}
			slog.Debug("tail delivery failed", "address", addr, "err", err)
		}
	}
}

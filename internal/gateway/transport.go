package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/primus/primacron/internal/connection"
	"github.com/primus/primacron/internal/gatewayerr"
)

// ErrMissingAccount is returned when a transport connection arrives with no
// account identifier attached.
var ErrMissingAccount = errors.New("missing account")

// handleTransport implements the realtime transport endpoint: it upgrades the request to a websocket, runs the Session
// Bootstrap sequence, attaches the resulting connection to the Connection
// Manager, and reads client-originated messages until the socket closes.
func (n *Node) handleTransport(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		n.onError(gatewayerr.Event{Kind: gatewayerr.KindConnect, Err: ErrMissingAccount})
		http.Error(w, ErrMissingAccount.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	ctx := r.Context()
	record, err := n.bootstrap(ctx, account)
	if err != nil {
		n.onError(gatewayerr.Event{Kind: gatewayerr.KindConnect, Err: err, Context: map[string]any{"account": account}})
		conn.Close(websocket.StatusInternalError, "bootstrap failed")
		return
	}

	sender := connection.NewWSSender(ctx, conn)
	n.connMgr.Open(record, sender)
	n.metrics.ObserveConnect()

	slog.Debug("connection attached", "id", record.ID, "account", account, "session", record.Session)

	err = connection.ReadLoop(ctx, conn, func(raw []byte) {
		n.handleInbound(ctx, record, raw)
	})
	if err != nil {
		slog.Debug("transport read loop ended", "id", record.ID, "err", err)
	}

	n.teardown(record)
}

// teardown detaches a connection from the Connection Manager and removes
// its session directory entry.
func (n *Node) teardown(record *connection.Record) {
	n.connMgr.Close(record.ID)
	n.metrics.ObserveDisconnect()

	if err := n.dir.Unregister(context.Background(), record.Account, record.Session, record.ID); err != nil {
		n.onError(gatewayerr.Event{
			Kind:    gatewayerr.KindDisconnect,
			Err:     err,
			Context: map[string]any{"id": record.ID},
		})
	}
}

// handleInbound implements the Connection Manager's per-message dispatch: a
// client message decodes to a JSON object. If it carries an "event" field,
// its "args" array is the argument list and the message is routed to
// validate::<event>; otherwise the whole decoded value is passed through as
// a single data argument to validate::message. The connection id is the
// validating user identity.
func (n *Node) handleInbound(ctx context.Context, record *connection.Record, raw []byte) {
	decoded, err := n.codec.Decode(raw)
	if err != nil {
		n.onError(gatewayerr.Event{Kind: gatewayerr.KindInvalid, Err: err, Context: map[string]any{"id": record.ID}})
		return
	}

	object, ok := decoded.(map[string]any)
	if !ok {
		n.onError(gatewayerr.Event{Kind: gatewayerr.KindInvalid, Context: map[string]any{"id": record.ID}})
		return
	}

	event, hasEvent := object["event"].(string)
	if !hasEvent {
		n.pipeline.Validate(ctx, "message", []any{decoded}, record.ID, string(raw))
		return
	}

	args, _ := object["args"].([]any)
	n.pipeline.Validate(ctx, event, args, record.ID, string(raw))
}

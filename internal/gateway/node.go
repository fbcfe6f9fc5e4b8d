// Package gateway assembles the Session Directory, Connection Manager,
// Validation Pipeline, Peer Broadcaster, and Tail Fan-out into one runnable
// node: the HTTP front door, transport lifecycle, and error/metrics wiring
// the other packages leave as interface seams.
package gateway

import (
	"context"
	"log/slog"

	"github.com/primus/primacron/internal/broadcast"
	"github.com/primus/primacron/internal/config"
	"github.com/primus/primacron/internal/connection"
	"github.com/primus/primacron/internal/directory"
	"github.com/primus/primacron/internal/gatewayerr"
	"github.com/primus/primacron/internal/session"
	"github.com/primus/primacron/internal/tail"
	"github.com/primus/primacron/internal/validate"
)

// Node is one gateway process: it owns a local slice of client connections
// and knows how to route validated messages to their tailgators, wherever
// those tailgators are attached.
type Node struct {
	cfg *config.Config

	dir     *session.Directory
	connMgr *connection.Manager
	pipeline *validate.Pipeline
	peer    *broadcast.Peer
	fanout  *tail.FanOut
	codec   Codec
	metrics *Metrics

	nodeURL      string
	genSessionID SessionIDGenerator
	onError      func(gatewayerr.Event)
}

// New assembles a Node from cfg over the given directory backend. Callers
// choose the backend (directory.Memory for a single node, directory.Redis
// for a cluster) and pass it in already constructed.
func New(cfg *config.Config, dirClient directory.Client) *Node {
	n := &Node{
		cfg:          cfg,
		connMgr:      connection.NewManager(),
		codec:        JSONCodec{},
		metrics:      NewMetrics(),
		nodeURL:      nodeURL(cfg),
		genSessionID: DefaultSessionID,
	}

	n.dir = session.NewDirectory(dirClient, cfg.Namespace, secondsToDuration(cfg.Timeout))
	n.onError = n.logError

	n.peer = broadcast.NewPeer(cfg.Broadcast, nil)
	n.peer.OnResult = n.metrics.ObservePeerSend

	n.fanout = &tail.FanOut{Sender: n.peer, OnError: n.onError}

	n.pipeline = validate.NewPipeline(n.handleStream, n.onError)

	return n
}

// RegisterValidator adds a validator for event, forwarding to the
// Validation Pipeline.
func (n *Node) RegisterValidator(event string, fn validate.Func, arity int) {
	n.pipeline.Register(event, fn, arity)
}

// EventNames returns every event name with at least one registered
// validator, for CLI introspection.
func (n *Node) EventNames() []string {
	return n.pipeline.EventNames()
}

// logError is the default onError sink: structured logging via log/slog.
func (n *Node) logError(ev gatewayerr.Event) {
	n.metrics.ObserveError(string(ev.Kind))
	slog.Warn("gateway error", "kind", ev.Kind, "err", ev.Err, "context", ev.Context)
}

// handleStream is the Validation Pipeline's onStream sink: a successfully validated message is delivered to every tailgator
// listed on the originating connection.
func (n *Node) handleStream(event string, data []any, raw, user string) {
	n.metrics.ObserveValidated(event)

	record, _, ok := n.connMgr.ByID(user)
	if !ok {
		return
	}
	n.fanout.Deliver(context.Background(), record.Tail(), raw)
}

// Has implements broadcast.Deliverer.
func (n *Node) Has(id string) bool {
	_, _, ok := n.connMgr.ByID(id)
	return ok
}

// DeliverPipe implements broadcast.Deliverer: writes payload to the client
// verbatim.
func (n *Node) DeliverPipe(id string, payload string) {
	_, sender, ok := n.connMgr.ByID(id)
	if !ok {
		return
	}
	if err := sender.Send([]byte(payload)); err != nil {
		n.onError(gatewayerr.Event{Kind: gatewayerr.KindDisconnect, Err: err, Context: map[string]any{"id": id}})
	}
}

// DeliverTail implements broadcast.Deliverer: appends each address to the
// connection's tail list.
func (n *Node) DeliverTail(id string, addresses []string) {
	record, _, ok := n.connMgr.ByID(id)
	if !ok {
		return
	}
	for _, addr := range addresses {
		record.AddTail(addr)
	}
}

// DeliverMessage implements broadcast.Deliverer: encodes message with the
// node's codec and writes it to the client.
func (n *Node) DeliverMessage(id string, message any) {
	_, sender, ok := n.connMgr.ByID(id)
	if !ok {
		return
	}
	encoded, err := n.codec.Encode(message)
	if err != nil {
		n.onError(gatewayerr.Event{Kind: gatewayerr.KindInvalid, Err: err, Context: map[string]any{"id": id}})
		return
	}
	if err := sender.Send(encoded); err != nil {
		n.onError(gatewayerr.Event{Kind: gatewayerr.KindDisconnect, Err: err, Context: map[string]any{"id": id}})
	}
}

func nodeURL(cfg *config.Config) string {
	if cfg.Port != 0 {
		return "http://" + cfg.Address + ":" + itoa(cfg.Port)
	}
	return "http://" + cfg.Address
}

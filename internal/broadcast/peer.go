// Package broadcast implements node-to-node message delivery: the Peer
// Broadcaster (outbound HTTP PUT) and the Inbound Broadcast Handler that
// receives it on the far side.
package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Envelope is the inter-node broadcast wire format: exactly two
// required keys, id and message.
type Envelope struct {
	ID      string `json:"id"`
	Message any    `json:"message"`
}

// Result is a successful peer delivery's response.
type Result struct {
	Status int
	Body   []byte
}

// Error classifies a failed peer delivery: a non-200 response carries the
// observed status code and body; a transport failure carries Err and a
// zero StatusCode.
type Error struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("peer broadcast: %v", e.Err)
	}
	return fmt.Sprintf("peer broadcast: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// Peer performs node-to-node delivery as an HTTP PUT to a peer's broadcast
// endpoint. There are no retries at this layer — callers
// (Tail Fan-out, or an application-initiated forward) decide whether to
// retry.
type Peer struct {
	Path       string
	HTTPClient *http.Client

	// OnResult, if set, is called once per Send with "success",
	// "http_error", or "transport_error" — a metrics hook.
	OnResult func(outcome string)
}

// NewPeer returns a Peer that PUTs to path on each peer URL. A nil client
// uses a 10-second default timeout.
func NewPeer(path string, client *http.Client) *Peer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Peer{Path: path, HTTPClient: client}
}

// Send delivers message to connID on the node at peerURL.
func (p *Peer) Send(ctx context.Context, peerURL, connID string, message any) (*Result, error) {
	body, err := json.Marshal(Envelope{ID: connID, Message: message})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, peerURL+p.Path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		p.observe("transport_error")
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		p.observe("http_error")
		return nil, &Error{StatusCode: resp.StatusCode, Body: respBody}
	}

	p.observe("success")
	return &Result{Status: resp.StatusCode, Body: respBody}, nil
}

func (p *Peer) observe(outcome string) {
	if p.OnResult != nil {
		p.OnResult(outcome)
	}
}

// Package session implements the Session Directory: key
// naming, TTL, and address serialization over a directory.Client.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/primus/primacron/internal/directory"
)

const pipeSuffix = "::pipe"

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "primacron"

// DefaultTimeout is the session entry TTL used when none is configured.
const DefaultTimeout = 900 * time.Second

// Directory maps (account, session) to a node address and owns the
// tailgator set for that pair.
type Directory struct {
	client    directory.Client
	namespace string
	timeout   time.Duration
}

// NewDirectory returns a Session Directory over client. An empty namespace
// defaults to DefaultNamespace; a non-positive timeout defaults to
// DefaultTimeout.
func NewDirectory(client directory.Client, namespace string, timeout time.Duration) *Directory {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Directory{client: client, namespace: namespace, timeout: timeout}
}

func (d *Directory) sessionKey(account, sess string) string {
	return fmt.Sprintf("%s::%s::%s", d.namespace, account, sess)
}

func (d *Directory) tailKey(account, sess string) string {
	return d.sessionKey(account, sess) + pipeSuffix
}

// Address formats a node URL and connection id as the directory's address
// shape: "<nodeURL>@<connectionId>".
func Address(nodeURL, connID string) string {
	return nodeURL + "@" + connID
}

// ParseAddress splits an address on the first "@": everything before is
// the node URL, everything after is the opaque connection id.
func ParseAddress(addr string) (nodeURL, connID string, ok bool) {
	idx := strings.Index(addr, "@")
	if idx < 0 {
		return "", "", false
	}
	return addr[:idx], addr[idx+1:], true
}

// Register computes the session key/value and performs an atomic
// set-with-TTL plus read-set-members of the tailgator set, returning the
// current tailgator list.
func (d *Directory) Register(ctx context.Context, account, sess, nodeURL, connID string) ([]string, error) {
	value := Address(nodeURL, connID)
	members, err := d.client.PutAndMembers(ctx, d.sessionKey(account, sess), d.timeout, value, d.tailKey(account, sess))
	if err != nil {
		return nil, err
	}
	return members, nil
}

// Unregister deletes the session key. connID is accepted for diagnostic
// context only — the delete is keyed by (account, session).
func (d *Directory) Unregister(ctx context.Context, account, sess, connID string) error {
	_ = connID
	return d.client.Delete(ctx, d.sessionKey(account, sess))
}

// Lookup returns the parsed (nodeURL, connID) for (account, sess), or
// ok == false if no entry exists.
func (d *Directory) Lookup(ctx context.Context, account, sess string) (nodeURL, connID string, ok bool, err error) {
	value, present, err := d.client.Get(ctx, d.sessionKey(account, sess))
	if err != nil || !present {
		return "", "", false, err
	}
	nodeURL, connID, ok = ParseAddress(value)
	return nodeURL, connID, ok, nil
}

// AddTailgator appends address to the tailgator set for (account, sess).
// Tailgator sets are grow-only: members are never auto-removed.
func (d *Directory) AddTailgator(ctx context.Context, account, sess, address string) error {
	return d.client.Add(ctx, d.tailKey(account, sess), address)
}

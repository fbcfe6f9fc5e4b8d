// Package connection owns the set of locally-attached client connections:
// the record each one carries, and the indexes a node uses to look them up
// by connection id or by session id.
package connection

import "sync"

// Record is a single locally-attached client connection. tail is a
// per-record field, initialized at bootstrap from the tailgator set read at
// registration (empty when there is none), and never shared across
// instances.
//
// ID is the connection's own identity — not a pointer back to the Record
// itself — so it stays a plain string through every lookup and log line.
type Record struct {
	ID      string
	Account string
	Session string

	mu   sync.Mutex
	tail []string
}

// NewRecord returns a Record with its own copy of the given initial tail
// addresses.
func NewRecord(id, account, sess string, tail []string) *Record {
	cp := make([]string, len(tail))
	copy(cp, tail)
	return &Record{ID: id, Account: account, Session: sess, tail: cp}
}

// Tail returns a snapshot of the current tailgator address list.
func (r *Record) Tail() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tail))
	copy(out, r.tail)
	return out
}

// AddTail appends address to the tail list if it is not already present.
func (r *Record) AddTail(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tail {
		if existing == address {
			return
		}
	}
	r.tail = append(r.tail, address)
}

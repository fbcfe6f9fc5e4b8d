// Package directory provides a thin typed adapter over a networked
// key/value store, exposing only the six operations the gateway needs:
// set-with-expiry, get, delete, set-add, set-members, and an atomic
// set-with-expiry+set-members pair.
package directory

import (
	"context"
	"time"
)

// Client is the directory's storage dependency. All operations propagate
// store errors to the caller; the caller decides whether to surface them
// to clients or only to an internal error channel.
type Client interface {
	// Put sets key to value with the given TTL. A zero ttl means no
	// expiry.
	Put(ctx context.Context, key string, ttl time.Duration, value string) error

	// Get returns the value for key, or ok == false if absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Add inserts member into the set at setKey.
	Add(ctx context.Context, setKey, member string) error

	// Members lists every member of the set at setKey.
	Members(ctx context.Context, setKey string) ([]string, error)

	// PutAndMembers atomically sets key to value with the given TTL and
	// reads the members of setKey in one round trip.
	PutAndMembers(ctx context.Context, key string, ttl time.Duration, value, setKey string) ([]string, error)
}

// Package registry is a small SQLite-backed ledger of known peer node
// URLs, used only for operator visibility. The routing components never
// consult it — every address the gateway actually routes to comes from a
// directory value; this package exists so operators have somewhere to
// record and list peers without grepping logs.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Node is a known peer node.
type Node struct {
	Name       string
	URL        string
	LastSeenAt time.Time
}

// Registry stores Nodes in a SQLite database.
type Registry struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening node registry: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS nodes (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		last_seen_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating node registry: %w", err)
	}

	return &Registry{db: db}, nil
}

// Upsert records name as reachable at url, refreshing its last-seen time.
func (r *Registry) Upsert(ctx context.Context, name, url string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO nodes (name, url, last_seen_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET url = excluded.url, last_seen_at = excluded.last_seen_at`,
		name, url, time.Now().UTC())
	return err
}

// List returns every known node, ordered by name.
func (r *Registry) List(ctx context.Context) ([]Node, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, url, last_seen_at FROM nodes ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.Name, &n.URL, &n.LastSeenAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (r *Registry) Close() error { return r.db.Close() }

package directory

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value string
	timer *time.Timer
}

// Memory is an in-memory, mutex-guarded directory client with TTL-timer
// based expiry. Intended for tests and single-node development.
type Memory struct {
	mu     sync.Mutex
	values map[string]memEntry
	sets   map[string]map[string]struct{}
}

// NewMemory returns a ready-to-use in-memory directory client.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]memEntry),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Put(_ context.Context, key string, ttl time.Duration, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(key, ttl, value)
	return nil
}

// putLocked assumes m.mu is already held.
func (m *Memory) putLocked(key string, ttl time.Duration, value string) {
	if existing, ok := m.values[key]; ok && existing.timer != nil {
		existing.timer.Stop()
	}

	entry := memEntry{value: value}
	if ttl > 0 {
		entry.timer = time.AfterFunc(ttl, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.values, key)
		})
	}
	m.values[key] = entry
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.values[key]
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.values[key]; ok && existing.timer != nil {
		existing.timer.Stop()
	}
	delete(m.values, key)
	return nil
}

func (m *Memory) Add(_ context.Context, setKey, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setKey]
	if !ok {
		set = make(map[string]struct{})
		m.sets[setKey] = set
	}
	set[member] = struct{}{}
	return nil
}

func (m *Memory) Members(_ context.Context, setKey string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return membersLocked(m.sets, setKey), nil
}

func membersLocked(sets map[string]map[string]struct{}, setKey string) []string {
	set, ok := sets[setKey]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	return out
}

func (m *Memory) PutAndMembers(_ context.Context, key string, ttl time.Duration, value, setKey string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(key, ttl, value)
	return membersLocked(m.sets, setKey), nil
}

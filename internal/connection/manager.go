package connection

import "sync"

// Sender writes an outbound payload to one client connection, or closes
// it. Implemented by the realtime transport (e.g. a websocket writer);
// kept as a narrow interface so the manager stays transport-agnostic.
type Sender interface {
	Send(data []byte) error
	Close() error
}

type entry struct {
	record *Record
	sender Sender
}

// Manager is the Connection Manager: the single owner of every locally
// attached connection, indexed both by connection id and by session id
//.
type Manager struct {
	mu        sync.RWMutex
	byID      map[string]*entry
	bySession map[string]*entry
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		byID:      make(map[string]*entry),
		bySession: make(map[string]*entry),
	}
}

func sessionIndexKey(account, sess string) string {
	return account + "::" + sess
}

// Open registers record and its sender under both indexes.
func (m *Manager) Open(record *Record, sender Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &entry{record: record, sender: sender}
	m.byID[record.ID] = e
	m.bySession[sessionIndexKey(record.Account, record.Session)] = e
}

// Close removes the connection with the given id from both indexes and
// returns its record. ok is false if no such connection is attached.
func (m *Manager) Close(id string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	delete(m.byID, id)
	delete(m.bySession, sessionIndexKey(e.record.Account, e.record.Session))
	return e.record, true
}

// ByID looks up a connection by its connection id.
func (m *Manager) ByID(id string) (*Record, Sender, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, nil, false
	}
	return e.record, e.sender, true
}

// BySession looks up a connection by (account, session).
func (m *Manager) BySession(account, sess string) (*Record, Sender, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.bySession[sessionIndexKey(account, sess)]
	if !ok {
		return nil, nil, false
	}
	return e.record, e.sender, true
}

// Len returns the number of currently attached connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

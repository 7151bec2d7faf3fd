package monitor

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
)

// NewSessionID returns a fresh 256-bit random session id, base64url encoded.
func NewSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// LocalStore holds the session id of one client context (a browser profile,
// a tab, a CLI process). It is never shared between devices.
type LocalStore interface {
	SessionID() string
	SetSessionID(sessionID string)
	Clear()
}

// MemoryLocalStore keeps the session id for the lifetime of the process.
type MemoryLocalStore struct {
	mu  sync.RWMutex
	sid string
}

// NewMemoryLocalStore returns a store holding sessionID; pass "" for none.
func NewMemoryLocalStore(sessionID string) *MemoryLocalStore {
	return &MemoryLocalStore{sid: sessionID}
}

func (s *MemoryLocalStore) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sid
}

func (s *MemoryLocalStore) SetSessionID(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = sessionID
}

func (s *MemoryLocalStore) Clear() {
	s.SetSessionID("")
}

package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Identity is the stable participant record a token resolves to. It outlives
// any single connection.
type Identity struct {
	ID   string
	Name string
}

type SessionManager struct {
	sessions map[string]Identity // token → identity
	mu       sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]Identity),
	}
}

// Issue mints a fresh reconnect token for an identity.
func (sm *SessionManager) Issue(identity Identity) string {
	token := uuid.New().String()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[token] = identity

	return token
}

func (sm *SessionManager) Resolve(token string) (Identity, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	identity, exists := sm.sessions[token]
	if !exists {
		return Identity{}, errors.New("TOKEN_NOT_FOUND: Invalid session token")
	}

	return identity, nil
}

// Revoke is used when a player logs out on purpose.
func (sm *SessionManager) Revoke(token string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, token)
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

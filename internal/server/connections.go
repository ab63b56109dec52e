package server

import (
	"sync"

	"github.com/coder/websocket"
)

// ConnectionManager tracks live sockets and which logical player each one
// belongs to. One player may hold several connections at once (multiple
// tabs), so the reverse index maps a player to a set of connection IDs.
type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID → socket
	identities  map[string]string          // connectionID → playerID
	byIdentity  map[string]map[string]bool // playerID → set of connectionIDs
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		identities:  make(map[string]string),
		byIdentity:  make(map[string]map[string]bool),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

// RemoveConnection drops the socket and its identity binding.
// Returns the playerID the connection was bound to (empty if anonymous) and
// whether that player has any connections left.
func (cm *ConnectionManager) RemoveConnection(id string) (playerID string, hasOthers bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	delete(cm.connections, id)

	playerID = cm.identities[id]
	delete(cm.identities, id)

	if playerID != "" {
		if set, exists := cm.byIdentity[playerID]; exists {
			delete(set, id)
			if len(set) == 0 {
				delete(cm.byIdentity, playerID)
			} else {
				hasOthers = true
			}
		}
	}

	return playerID, hasOthers
}

// Bind associates a connection with a logged-in player. Rebinding a
// connection to a different player (token switch) moves it between sets.
func (cm *ConnectionManager) Bind(connectionID, playerID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if old, exists := cm.identities[connectionID]; exists && old != playerID {
		if set, ok := cm.byIdentity[old]; ok {
			delete(set, connectionID)
			if len(set) == 0 {
				delete(cm.byIdentity, old)
			}
		}
	}

	cm.identities[connectionID] = playerID

	set, exists := cm.byIdentity[playerID]
	if !exists {
		set = make(map[string]bool)
		cm.byIdentity[playerID] = set
	}
	set[connectionID] = true
}

// Unbind detaches a connection from its player without closing the socket.
// Used for log_out: the socket stays open, anonymous again.
func (cm *ConnectionManager) Unbind(connectionID string) (playerID string, hasOthers bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	playerID = cm.identities[connectionID]
	if playerID == "" {
		return "", false
	}
	delete(cm.identities, connectionID)

	if set, exists := cm.byIdentity[playerID]; exists {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(cm.byIdentity, playerID)
		} else {
			hasOthers = true
		}
	}

	return playerID, hasOthers
}

// IdentityFor returns the playerID a connection is bound to, or "".
func (cm *ConnectionManager) IdentityFor(connectionID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.identities[connectionID]
}

// ConnectionsFor returns the live sockets of every connection a player holds.
func (cm *ConnectionManager) ConnectionsFor(playerID string) []*websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	var conns []*websocket.Conn
	for connID := range cm.byIdentity[playerID] {
		if conn, exists := cm.connections[connID]; exists {
			conns = append(conns, conn)
		}
	}
	return conns
}

// GetConnection returns the socket for a connectionID.
func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[connectionID]
}

// AllConnections returns every live socket. Used for lobby-wide broadcasts
// (game_created, server_shutdown).
func (cm *ConnectionManager) AllConnections() []*websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	return conns
}

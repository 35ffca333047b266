package websocket

import (
	"sync"

	"auction-system/internal/domain"
	"auction-system/pkg/logger"
)

// Message is the envelope pushed to websocket clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ConnectionManager tracks the sockets held by this instance and pushes
// leaderboards to them, each dealer receiving their own view.
type ConnectionManager struct {
	connections map[string]map[string]domain.WebSocketConnection // sessionID -> dealerID -> connection
	versions    map[string]int64                                 // sessionID -> last broadcast version
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]domain.WebSocketConnection),
		versions:    make(map[string]int64),
		log:         log,
	}
}

// RegisterConnection adds conn. A dealer's earlier socket on the same session
// is closed and replaced.
func (cm *ConnectionManager) RegisterConnection(dealerID, sessionID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	if cm.connections[sessionID] == nil {
		cm.connections[sessionID] = make(map[string]domain.WebSocketConnection)
	}
	previous := cm.connections[sessionID][dealerID]
	cm.connections[sessionID][dealerID] = conn
	cm.mutex.Unlock()

	if previous != nil && previous != conn {
		if err := previous.Close(); err != nil {
			cm.log.Debug("Failed to close replaced connection", "dealer_id", dealerID,
				"session_id", sessionID, "error", err)
		}
	}

	cm.log.Info("Connection registered", "dealer_id", dealerID, "session_id", sessionID)
	return nil
}

// unregisterIfCurrent removes conn only if it is still the registered socket,
// so a replaced connection's reader cannot evict its successor.
func (cm *ConnectionManager) unregisterIfCurrent(conn domain.WebSocketConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	sessionConns, exists := cm.connections[conn.SessionID()]
	if !exists || sessionConns[conn.DealerID()] != conn {
		return
	}
	delete(sessionConns, conn.DealerID())
	if len(sessionConns) == 0 {
		delete(cm.connections, conn.SessionID())
	}
	cm.log.Info("Connection unregistered", "dealer_id", conn.DealerID(), "session_id", conn.SessionID())
}

func (cm *ConnectionManager) CloseAndUnregisterConnections(sessionID string) error {
	cm.mutex.Lock()
	sessionConns := cm.connections[sessionID]
	delete(cm.connections, sessionID)
	delete(cm.versions, sessionID)
	cm.mutex.Unlock()

	for dealerID, conn := range sessionConns {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "dealer_id", dealerID,
				"session_id", sessionID, "error", err)
		}
	}

	cm.log.Info("Connections closed for session", "session_id", sessionID, "count", len(sessionConns))
	return nil
}

func (cm *ConnectionManager) GetConnectionsForSession(sessionID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var connections []domain.WebSocketConnection
	for _, conn := range cm.connections[sessionID] {
		connections = append(connections, conn)
	}
	return connections
}

// BroadcastLeaderboard sends board to every connection on the session.
// Boards older than one already broadcast are dropped, since bus delivery
// order is not guaranteed across publishers.
func (cm *ConnectionManager) BroadcastLeaderboard(sessionID string, msgType string, board domain.Leaderboard) error {
	cm.mutex.Lock()
	if len(cm.connections[sessionID]) == 0 {
		cm.mutex.Unlock()
		return nil
	}
	if last, seen := cm.versions[sessionID]; seen && board.Version < last {
		cm.mutex.Unlock()
		cm.log.Debug("Dropping stale leaderboard", "session_id", sessionID,
			"version", board.Version, "last_version", last)
		return nil
	}
	cm.versions[sessionID] = board.Version
	connections := make([]domain.WebSocketConnection, 0, len(cm.connections[sessionID]))
	for _, conn := range cm.connections[sessionID] {
		connections = append(connections, conn)
	}
	cm.mutex.Unlock()

	for _, conn := range connections {
		msg := Message{Type: msgType, Payload: board.ViewFor(conn.DealerID())}
		if err := conn.Send(msg); err != nil {
			cm.log.Warn("Failed to send leaderboard", "dealer_id", conn.DealerID(),
				"session_id", sessionID, "error", err)
		}
	}

	cm.log.Debug("Broadcast leaderboard", "session_id", sessionID, "type", msgType,
		"version", board.Version, "connections", len(connections))
	return nil
}

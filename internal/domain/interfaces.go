//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks auction-system/internal/domain EventPublisher,LeaderboardCache

package domain

import (
	"context"
)

// Event interfaces
type EventPublisher interface {
	Publish(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

// SessionEndedSink receives exactly one notification per ended session.
type SessionEndedSink interface {
	SessionEnded(ctx context.Context, event *AuctionEvent) error
}

// Cache interfaces
type LeaderboardCache interface {
	SetLeaderboard(ctx context.Context, board *Leaderboard) error
	GetLeaderboard(ctx context.Context, sessionID string) (*Leaderboard, error)
	SetSessionStatus(ctx context.Context, sessionID string, status SessionStatus) error
	GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	DealerID() string
	SessionID() string
}

type ConnectionManager interface {
	RegisterConnection(dealerID, sessionID string, conn WebSocketConnection) error
	GetConnectionsForSession(sessionID string) []WebSocketConnection
	BroadcastLeaderboard(sessionID string, msgType string, board Leaderboard) error
	CloseAndUnregisterConnections(sessionID string) error
}

package services

import (
	"context"
	"fmt"

	"auction-system/internal/domain"
	"auction-system/pkg/logger"
)

const (
	MessageLeaderboard  = "leaderboard"
	MessageSessionEnded = "session_ended"
)

// EventListener relays bus events to the websocket connections held by this
// instance.
type EventListener struct {
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager, log logger.Logger) *EventListener {
	return &EventListener{
		connectionManager: connectionManager,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.Subscribe(ctx, el.HandleEvent)
}

func (el *EventListener) HandleEvent(event *domain.AuctionEvent) error {
	el.log.Debug("Handling auction event", "type", event.Type, "session_id", event.SessionID)

	if event.Leaderboard == nil {
		return fmt.Errorf("event %s for session %s carries no leaderboard", event.Type, event.SessionID)
	}

	switch event.Type {
	case domain.EventBidPlaced, domain.EventBidWithdrawn:
		return el.connectionManager.BroadcastLeaderboard(event.SessionID, MessageLeaderboard, *event.Leaderboard)
	case domain.EventSessionEnded:
		return el.handleSessionEnded(event)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleSessionEnded(event *domain.AuctionEvent) error {
	if err := el.connectionManager.BroadcastLeaderboard(event.SessionID, MessageSessionEnded, *event.Leaderboard); err != nil {
		el.log.Error("Failed to broadcast session ended", "session_id", event.SessionID, "error", err)
	}

	if err := el.connectionManager.CloseAndUnregisterConnections(event.SessionID); err != nil {
		el.log.Error("Failed to finalize connections for session", "session_id",
			event.SessionID, "error", err)
		return err
	}
	return nil
}

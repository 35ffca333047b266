package services

import (
	"context"
	"time"

	"auction-system/internal/domain"
	"auction-system/internal/domain/repositories"
	"auction-system/pkg/logger"
)

// ResultRecorder stores the final standings of every ended session it hears
// about on the event bus.
type ResultRecorder struct {
	results repositories.ResultRepository
	timeout time.Duration
	log     logger.Logger
}

func NewResultRecorder(results repositories.ResultRepository, log logger.Logger) *ResultRecorder {
	return &ResultRecorder{
		results: results,
		timeout: 5 * time.Second,
		log:     log,
	}
}

func (rr *ResultRecorder) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	rr.log.Info("Starting result recorder")
	return subscriber.Subscribe(ctx, rr.HandleEvent)
}

// HandleEvent ignores everything but session_ended.
func (rr *ResultRecorder) HandleEvent(event *domain.AuctionEvent) error {
	if event.Type != domain.EventSessionEnded {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), rr.timeout)
	defer cancel()

	if err := rr.results.SaveResult(ctx, event); err != nil {
		rr.log.Error("Failed to store session result", "session_id", event.SessionID, "error", err)
		return err
	}

	fields := []interface{}{"session_id", event.SessionID, "reason", event.EndReason}
	if event.Leaderboard != nil {
		if leader, ok := event.Leaderboard.Leader(); ok {
			fields = append(fields, "leader_bid_id", leader.BidID, "amount", leader.Amount.String())
		}
	}
	rr.log.Info("Session result stored", fields...)
	return nil
}

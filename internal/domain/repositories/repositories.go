//go:generate mockgen -destination=../mocks/mock_repositories.go -package=mocks auction-system/internal/domain/repositories SessionRepository,BidRepository,ResultRepository

package repositories

import (
	"context"
	"time"

	"auction-system/internal/domain"
)

type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, endedAt time.Time) error
	GetActiveSessions(ctx context.Context) ([]*domain.Session, error)
}

// BidRepository stores every bid ever accepted. SaveBid is an upsert so a
// retried write converges on the latest snapshot.
type BidRepository interface {
	SaveBid(ctx context.Context, bid *domain.Bid) error
	UpdateBidStatus(ctx context.Context, bidID string, status domain.BidStatus, at time.Time) error
	GetBidHistory(ctx context.Context, sessionID string) ([]*domain.Bid, error)
}

type ResultRepository interface {
	SaveResult(ctx context.Context, event *domain.AuctionEvent) error
}

package services

import (
	"context"
	"errors"
	"sync"

	"auction-system/internal/clock"
	"auction-system/internal/domain"
	"auction-system/internal/domain/repositories"
	"auction-system/pkg/logger"

	"github.com/shopspring/decimal"
)

type writeOp string

const (
	opSave   writeOp = "save"
	opStatus writeOp = "status"
)

type pendingWrite struct {
	op       writeOp
	bid      domain.Bid
	attempts int
}

// PlaceBidResult is returned for an admitted bid.
type PlaceBidResult struct {
	Bid         domain.Bid         `json:"bid"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

// BidService exposes the bidding operations. The in-memory transition commits
// first; storage, cache and event side effects follow outside the session lock.
type BidService struct {
	registry  *SessionRegistry
	bidRepo   repositories.BidRepository
	publisher domain.EventPublisher
	cache     domain.LeaderboardCache
	clock     clock.TimeSource
	log       logger.Logger

	pendingMu sync.Mutex
	pending   []*pendingWrite
}

func NewBidService(
	registry *SessionRegistry,
	bidRepo repositories.BidRepository,
	publisher domain.EventPublisher,
	cache domain.LeaderboardCache,
	timeSource clock.TimeSource,
	log logger.Logger,
) *BidService {
	return &BidService{
		registry:  registry,
		bidRepo:   bidRepo,
		publisher: publisher,
		cache:     cache,
		clock:     timeSource,
		log:       log,
	}
}

// PlaceBid admits a bid. A *domain.Rejection means nothing changed. A
// *domain.PersistenceError comes with a non-nil result: the bid stands and
// the write has been queued for retry.
func (s *BidService) PlaceBid(ctx context.Context, sessionID, dealerID string, amount decimal.Decimal, perks string) (*PlaceBidResult, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := session.PlaceBid(dealerID, amount, perks, s.clock.Now())
	if err != nil {
		s.log.Info("Bid rejected", "session_id", sessionID, "dealer_id", dealerID,
			"amount", amount.String(), "reason", err.Error())
		return nil, err
	}

	s.log.Info("Bid accepted", "session_id", sessionID, "dealer_id", dealerID,
		"bid_id", outcome.Bid.ID, "amount", outcome.Bid.Amount.String())

	persistErr := s.persist(ctx, opSave, outcome.Bid)
	if outcome.Superseded != nil {
		if err := s.persist(ctx, opStatus, *outcome.Superseded); err != nil && persistErr == nil {
			persistErr = err
		}
	}

	s.afterCommit(ctx, &domain.AuctionEvent{
		Type:        domain.EventBidPlaced,
		SessionID:   sessionID,
		BidderID:    dealerID,
		BidID:       outcome.Bid.ID,
		Timestamp:   outcome.Bid.PlacedAt,
		Leaderboard: &outcome.Leaderboard,
	})

	result := &PlaceBidResult{Bid: outcome.Bid, Leaderboard: outcome.Leaderboard}
	if persistErr != nil {
		return result, persistErr
	}
	return result, nil
}

// WithdrawBid withdraws the dealer's live bid. Error semantics match PlaceBid.
func (s *BidService) WithdrawBid(ctx context.Context, sessionID, dealerID, bidID string) (*domain.Leaderboard, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	outcome, err := session.WithdrawBid(dealerID, bidID, now)
	if err != nil {
		s.log.Info("Withdrawal rejected", "session_id", sessionID, "dealer_id", dealerID,
			"bid_id", bidID, "reason", err.Error())
		return nil, err
	}

	s.log.Info("Bid withdrawn", "session_id", sessionID, "dealer_id", dealerID, "bid_id", bidID)

	persistErr := s.persist(ctx, opStatus, outcome.Bid)

	s.afterCommit(ctx, &domain.AuctionEvent{
		Type:        domain.EventBidWithdrawn,
		SessionID:   sessionID,
		BidderID:    dealerID,
		BidID:       bidID,
		Timestamp:   now,
		Leaderboard: &outcome.Leaderboard,
	})

	if persistErr != nil {
		return &outcome.Leaderboard, persistErr
	}
	return &outcome.Leaderboard, nil
}

// GetLeaderboard returns the current ranking. Sessions held by this instance
// are read from memory; any other session is served from the shared cache.
func (s *BidService) GetLeaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	session, err := s.registry.Get(sessionID)
	if err == nil {
		return session.Leaderboard(), nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Leaderboard{}, err
	}
	return s.cachedLeaderboard(ctx, sessionID)
}

func (s *BidService) cachedLeaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	board, err := s.cache.GetLeaderboard(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Warn("Failed to read cached leaderboard", "session_id", sessionID, "error", err)
		}
		return domain.Leaderboard{}, domain.ErrSessionNotFound
	}

	// the status key is written when the session ends, independently of the
	// versioned board
	status, err := s.cache.GetSessionStatus(ctx, sessionID)
	switch {
	case err == nil:
		if status == domain.SessionEnded {
			board.Status = domain.SessionEnded
		}
	case !errors.Is(err, domain.ErrSessionNotFound):
		s.log.Warn("Failed to read cached session status", "session_id", sessionID, "error", err)
	}
	return *board, nil
}

// GetLeaderboardFor returns the leaderboard as seen by one dealer.
func (s *BidService) GetLeaderboardFor(ctx context.Context, sessionID, viewerID string) (domain.Leaderboard, error) {
	board, err := s.GetLeaderboard(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return board.ViewFor(viewerID), nil
}

// BidHistory returns every bid the session accepted, withdrawn ones included,
// anonymized for viewerID the same way the leaderboard is.
func (s *BidService) BidHistory(sessionID, viewerID string) (domain.BidHistory, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return domain.BidHistory{}, err
	}
	return session.History().ViewFor(viewerID), nil
}

func (s *BidService) afterCommit(ctx context.Context, event *domain.AuctionEvent) {
	if err := s.cache.SetLeaderboard(ctx, event.Leaderboard); err != nil {
		s.log.Warn("Failed to cache leaderboard", "session_id", event.SessionID, "error", err)
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish bid event", "session_id", event.SessionID,
			"type", event.Type, "error", err)
	}
}

func (s *BidService) persist(ctx context.Context, op writeOp, bid domain.Bid) error {
	err := s.write(ctx, op, bid)
	if err == nil {
		return nil
	}

	s.log.Error("Failed to persist bid, queued for retry", "op", op, "bid_id", bid.ID,
		"session_id", bid.SessionID, "error", err)
	s.enqueue(op, bid)
	return &domain.PersistenceError{Op: string(op), BidID: bid.ID, Err: err}
}

func (s *BidService) write(ctx context.Context, op writeOp, bid domain.Bid) error {
	switch op {
	case opStatus:
		at := bid.PlacedAt
		if bid.WithdrawnAt != nil {
			at = *bid.WithdrawnAt
		}
		err := s.bidRepo.UpdateBidStatus(ctx, bid.ID, bid.Status, at)
		if errors.Is(err, domain.ErrRecordNotFound) {
			// the row was never written; write the whole snapshot instead
			return s.bidRepo.SaveBid(ctx, &bid)
		}
		return err
	default:
		return s.bidRepo.SaveBid(ctx, &bid)
	}
}

// enqueue coalesces writes per bid: a pending save absorbs later status
// changes, and a withdrawn snapshot is never replaced by a live one.
func (s *BidService) enqueue(op writeOp, bid domain.Bid) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	for _, p := range s.pending {
		if p.bid.ID != bid.ID {
			continue
		}
		if p.bid.Status == domain.BidLive {
			p.bid = bid
		}
		if op == opSave {
			p.op = opSave
		}
		return
	}
	s.pending = append(s.pending, &pendingWrite{op: op, bid: bid})
}

// RetryPending replays queued writes and returns how many are still pending.
func (s *BidService) RetryPending(ctx context.Context) int {
	s.pendingMu.Lock()
	batch := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	var failed []*pendingWrite
	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			failed = append(failed, p)
			continue
		}
		s.refresh(p)
		if err := s.write(ctx, p.op, p.bid); err != nil {
			p.attempts++
			s.log.Warn("Retry of bid write failed", "op", p.op, "bid_id", p.bid.ID,
				"attempts", p.attempts, "error", err)
			failed = append(failed, p)
			continue
		}
		s.log.Info("Bid write recovered", "op", p.op, "bid_id", p.bid.ID, "attempts", p.attempts+1)
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	// writes queued while this batch ran go after the retried ones
	for _, f := range failed {
		s.mergeLocked(f)
	}
	return len(s.pending)
}

// refresh replaces a queued snapshot with the bid's current state when its
// session is still held in memory.
func (s *BidService) refresh(p *pendingWrite) {
	session, err := s.registry.Get(p.bid.SessionID)
	if err != nil {
		return
	}
	if current, ok := session.Bid(p.bid.ID); ok {
		p.bid = current
	}
}

func (s *BidService) mergeLocked(f *pendingWrite) {
	for i, p := range s.pending {
		if p.bid.ID != f.bid.ID {
			continue
		}
		// p is newer than f
		if p.bid.Status == domain.BidLive {
			p.bid = f.bid
		}
		if f.op == opSave {
			p.op = opSave
		}
		s.pending[i] = p
		return
	}
	s.pending = append([]*pendingWrite{f}, s.pending...)
}

// PendingWrites reports the size of the retry queue.
func (s *BidService) PendingWrites() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

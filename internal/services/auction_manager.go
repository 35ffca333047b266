package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"auction-system/internal/clock"
	"auction-system/internal/domain"
	"auction-system/internal/domain/repositories"
	"auction-system/pkg/logger"
	"auction-system/pkg/utils"
)

// AuctionManager owns the session lifecycle: creation, explicit close, the
// deadline sweep and recovery of active sessions after a restart.
type AuctionManager struct {
	registry    *SessionRegistry
	validator   *BidValidator
	sessionRepo repositories.SessionRepository
	bidRepo     repositories.BidRepository
	cache       domain.LeaderboardCache
	clock       clock.TimeSource
	log         logger.Logger

	sinksMu sync.RWMutex
	sinks   []domain.SessionEndedSink

	unsettledMu sync.Mutex
	unsettled   map[string]*domain.AuctionEvent // ended sessions whose status write failed
}

func NewAuctionManager(
	registry *SessionRegistry,
	validator *BidValidator,
	sessionRepo repositories.SessionRepository,
	bidRepo repositories.BidRepository,
	cache domain.LeaderboardCache,
	timeSource clock.TimeSource,
	log logger.Logger,
) *AuctionManager {
	return &AuctionManager{
		registry:    registry,
		validator:   validator,
		sessionRepo: sessionRepo,
		bidRepo:     bidRepo,
		cache:       cache,
		clock:       timeSource,
		log:         log,
		unsettled:   make(map[string]*domain.AuctionEvent),
	}
}

// AddSink registers a receiver for session-ended notifications.
func (am *AuctionManager) AddSink(sink domain.SessionEndedSink) {
	am.sinksMu.Lock()
	defer am.sinksMu.Unlock()
	am.sinks = append(am.sinks, sink)
}

// CreateSession opens a new auction for listing. The floor is the listing
// price; the deadline is now plus duration.
func (am *AuctionManager) CreateSession(ctx context.Context, listing domain.Listing, mode domain.SessionMode, duration time.Duration) (*domain.SessionInfo, error) {
	if strings.TrimSpace(listing.ID) == "" {
		return nil, fmt.Errorf("listing id is required")
	}
	if mode != domain.ModeForward && mode != domain.ModeReverse {
		return nil, fmt.Errorf("unknown session mode %d", mode)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("session duration must be positive, got %s", duration)
	}

	now := am.clock.Now()
	session := domain.Session{
		ID:         utils.GenerateID("session"),
		Listing:    listing,
		Mode:       mode,
		FloorPrice: NormalizeAmount(listing.Price),
		Deadline:   now.Add(duration),
		Status:     domain.SessionActive,
		CreatedAt:  now,
	}

	if err := am.sessionRepo.CreateSession(ctx, &session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	auction := NewAuctionSession(session, am.validator)
	if err := am.registry.Add(auction); err != nil {
		return nil, err
	}

	board := auction.Leaderboard()
	if err := am.cache.SetSessionStatus(ctx, session.ID, domain.SessionActive); err != nil {
		am.log.Warn("Failed to cache session status", "session_id", session.ID, "error", err)
	}
	if err := am.cache.SetLeaderboard(ctx, &board); err != nil {
		am.log.Warn("Failed to cache leaderboard", "session_id", session.ID, "error", err)
	}

	am.log.Info("Session created", "session_id", session.ID, "listing_id", listing.ID,
		"mode", mode.String(), "deadline", session.Deadline)

	info := auction.Info(now)
	return &info, nil
}

// GetSession describes a session. A session this instance does not hold is
// read from storage, with its live bid count taken from the shared cache.
func (am *AuctionManager) GetSession(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	now := am.clock.Now()
	if auction, err := am.registry.Get(sessionID); err == nil {
		info := auction.Info(now)
		return &info, nil
	}

	session, err := am.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	info := domain.SessionInfo{Session: *session}
	if session.Status == domain.SessionActive {
		info.RemainingSeconds = clock.Remaining(session.Deadline, now)
	}
	if board, err := am.cache.GetLeaderboard(ctx, sessionID); err == nil {
		info.LiveBids = len(board.Entries)
	}
	return &info, nil
}

// CloseSession ends a session ahead of its deadline. Closing an ended session
// is a SessionEnded rejection.
func (am *AuctionManager) CloseSession(ctx context.Context, sessionID string) (*domain.Leaderboard, error) {
	auction, err := am.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	event, ended := auction.Close(am.clock.Now())
	if !ended {
		return nil, domain.ErrSessionEnded
	}

	am.handleEnded(ctx, event)
	return event.Leaderboard, nil
}

// Tick ends every session whose deadline has passed and returns how many it
// ended. It is safe to call at any cadence.
func (am *AuctionManager) Tick(ctx context.Context) int {
	now := am.clock.Now()
	ended := 0
	for _, auction := range am.registry.All() {
		event, ok := auction.Tick(now)
		if !ok {
			continue
		}
		ended++
		am.handleEnded(ctx, event)
	}
	return ended
}

func (am *AuctionManager) handleEnded(ctx context.Context, event *domain.AuctionEvent) {
	am.log.Info("Session ended", "session_id", event.SessionID, "reason", event.EndReason,
		"live_bids", len(event.Leaderboard.Entries))

	if err := am.settle(ctx, event); err != nil {
		am.log.Error("Failed to persist session end, queued for retry",
			"session_id", event.SessionID, "error", err)
		am.unsettledMu.Lock()
		am.unsettled[event.SessionID] = event
		am.unsettledMu.Unlock()
	}

	if err := am.cache.SetSessionStatus(ctx, event.SessionID, domain.SessionEnded); err != nil {
		am.log.Warn("Failed to cache session status", "session_id", event.SessionID, "error", err)
	}
	if err := am.cache.SetLeaderboard(ctx, event.Leaderboard); err != nil {
		am.log.Warn("Failed to cache leaderboard", "session_id", event.SessionID, "error", err)
	}

	am.sinksMu.RLock()
	sinks := append([]domain.SessionEndedSink(nil), am.sinks...)
	am.sinksMu.RUnlock()

	for _, sink := range sinks {
		if err := sink.SessionEnded(ctx, event); err != nil {
			am.log.Warn("Session-ended sink failed", "session_id", event.SessionID, "error", err)
		}
	}
}

func (am *AuctionManager) settle(ctx context.Context, event *domain.AuctionEvent) error {
	return am.sessionRepo.UpdateSessionStatus(ctx, event.SessionID, domain.SessionEnded, event.Timestamp)
}

// RetryUnsettled replays failed session-end writes and returns how many are
// still outstanding.
func (am *AuctionManager) RetryUnsettled(ctx context.Context) int {
	am.unsettledMu.Lock()
	defer am.unsettledMu.Unlock()

	for id, event := range am.unsettled {
		if err := am.settle(ctx, event); err != nil {
			am.log.Warn("Retry of session end failed", "session_id", id, "error", err)
			continue
		}
		delete(am.unsettled, id)
		am.log.Info("Session end recovered", "session_id", id)
	}
	return len(am.unsettled)
}

// Boot reloads active sessions and their bids from storage. Sessions whose
// deadline passed while the process was down are ended by the next Tick.
func (am *AuctionManager) Boot(ctx context.Context) (int, error) {
	sessions, err := am.sessionRepo.GetActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active sessions: %w", err)
	}

	restored := 0
	for _, session := range sessions {
		bids, err := am.bidRepo.GetBidHistory(ctx, session.ID)
		if err != nil {
			return restored, fmt.Errorf("failed to load bids for session %s: %w", session.ID, err)
		}

		auction := NewAuctionSession(*session, am.validator)
		auction.Restore(bids)
		if err := am.registry.Add(auction); err != nil {
			am.log.Warn("Skipping restored session", "session_id", session.ID, "error", err)
			continue
		}
		restored++

		board := auction.Leaderboard()
		if err := am.cache.SetLeaderboard(ctx, &board); err != nil {
			am.log.Warn("Failed to cache leaderboard", "session_id", session.ID, "error", err)
		}
		am.log.Info("Session restored", "session_id", session.ID, "bids", len(bids))
	}
	return restored, nil
}

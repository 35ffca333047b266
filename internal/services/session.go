package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"auction-system/internal/clock"
	"auction-system/internal/domain"
	"auction-system/pkg/utils"

	"github.com/shopspring/decimal"
)

// AuctionSession is the state machine for one listing's auction. All
// mutations run under mu, so operations on the same session are applied in a
// strict order. Nothing in here performs I/O.
type AuctionSession struct {
	mu        sync.Mutex
	session   domain.Session
	validator *BidValidator

	live    map[string]*domain.Bid // dealerID -> current live bid
	byID    map[string]*domain.Bid
	history []*domain.Bid // every accepted bid, in acceptance order
	labels  map[string]string

	seq     int64 // last assigned bid sequence
	version int64 // bumped on every mutation
}

// PlaceOutcome is the result of an admitted bid.
type PlaceOutcome struct {
	Bid         domain.Bid
	Superseded  *domain.Bid
	Leaderboard domain.Leaderboard
}

// WithdrawOutcome is the result of a successful withdrawal.
type WithdrawOutcome struct {
	Bid         domain.Bid
	Leaderboard domain.Leaderboard
}

func NewAuctionSession(session domain.Session, validator *BidValidator) *AuctionSession {
	if session.Status == 0 {
		session.Status = domain.SessionActive
	}
	return &AuctionSession{
		session:   session,
		validator: validator,
		live:      make(map[string]*domain.Bid),
		byID:      make(map[string]*domain.Bid),
		labels:    make(map[string]string),
	}
}

func (a *AuctionSession) ID() string {
	return a.session.ID
}

// PlaceBid admits a bid or returns a *domain.Rejection. A dealer holds at
// most one live bid; an earlier one is marked withdrawn, never deleted.
func (a *AuctionSession) PlaceBid(dealerID string, amount decimal.Decimal, perks string, now time.Time) (*PlaceOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.validator.Validate(&a.session, dealerID, amount, now); err != nil {
		return nil, err
	}

	if a.session.Mode != domain.ModeReverse {
		perks = ""
	} else if err := a.validator.ValidatePerks(perks); err != nil {
		return nil, err
	}

	a.seq++
	a.version++
	bid := &domain.Bid{
		ID:        utils.GenerateID("bid"),
		SessionID: a.session.ID,
		BidderID:  dealerID,
		Amount:    NormalizeAmount(amount),
		Perks:     strings.TrimSpace(perks),
		PlacedAt:  now,
		Seq:       a.seq,
		Status:    domain.BidLive,
	}

	var superseded *domain.Bid
	if prev, ok := a.live[dealerID]; ok {
		markWithdrawn(prev, now)
		cp := *prev
		superseded = &cp
	}

	a.record(bid)

	return &PlaceOutcome{
		Bid:         *bid,
		Superseded:  superseded,
		Leaderboard: a.leaderboardLocked(),
	}, nil
}

// WithdrawBid withdraws the dealer's live bid. Ownership is checked before
// anything else, so touching another dealer's bid is always NotOwner.
func (a *AuctionSession) WithdrawBid(dealerID, bidID string, now time.Time) (*WithdrawOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	bid, ok := a.byID[bidID]
	if !ok {
		return nil, domain.ErrBidNotFound
	}
	if bid.BidderID != dealerID {
		return nil, domain.ErrNotOwner
	}
	if a.session.Status == domain.SessionEnded || !now.Before(a.session.Deadline) {
		return nil, domain.ErrSessionEnded
	}
	if current, ok := a.live[dealerID]; !ok || current.ID != bidID {
		return nil, domain.ErrBidNotFound
	}

	a.version++
	markWithdrawn(bid, now)
	delete(a.live, dealerID)

	return &WithdrawOutcome{
		Bid:         *bid,
		Leaderboard: a.leaderboardLocked(),
	}, nil
}

// Tick ends the session once its deadline has passed. It reports true exactly
// once over the life of the session.
func (a *AuctionSession) Tick(now time.Time) (*domain.AuctionEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if now.Before(a.session.Deadline) {
		return nil, false
	}
	return a.endLocked(now, domain.EndReasonDeadline)
}

// Close ends the session ahead of its deadline. It shares the once-only
// transition with Tick.
func (a *AuctionSession) Close(now time.Time) (*domain.AuctionEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.endLocked(now, domain.EndReasonClosed)
}

func (a *AuctionSession) endLocked(now time.Time, reason domain.EndReason) (*domain.AuctionEvent, bool) {
	if a.session.Status != domain.SessionActive {
		return nil, false
	}

	a.session.Status = domain.SessionEnded
	endedAt := now
	a.session.EndedAt = &endedAt
	a.version++

	board := a.leaderboardLocked()
	return &domain.AuctionEvent{
		Type:        domain.EventSessionEnded,
		SessionID:   a.session.ID,
		ListingID:   a.session.Listing.ID,
		EndReason:   reason,
		Timestamp:   now,
		Leaderboard: &board,
	}, true
}

func (a *AuctionSession) Leaderboard() domain.Leaderboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.leaderboardLocked()
}

func (a *AuctionSession) leaderboardLocked() domain.Leaderboard {
	return domain.Leaderboard{
		SessionID: a.session.ID,
		Mode:      a.session.Mode,
		Status:    a.session.Status,
		Version:   a.version,
		Entries:   RankBids(a.session.Mode, a.history, a.labels),
	}
}

// Info returns the session description with its remaining time at now.
func (a *AuctionSession) Info(now time.Time) domain.SessionInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.session
	if s.EndedAt != nil {
		endedAt := *s.EndedAt
		s.EndedAt = &endedAt
	}

	var remaining int64
	if s.Status == domain.SessionActive {
		remaining = clock.Remaining(s.Deadline, now)
	}

	return domain.SessionInfo{
		Session:          s,
		RemainingSeconds: remaining,
		LiveBids:         len(a.live),
	}
}

// History returns copies of every bid the session accepted, oldest first,
// labelled with each dealer's pseudonym.
func (a *AuctionSession) History() domain.BidHistory {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := make([]domain.HistoryEntry, len(a.history))
	for i, b := range a.history {
		entries[i] = domain.HistoryEntry{
			Bid:             copyBid(b),
			AnonymizedLabel: a.labels[b.BidderID],
		}
	}
	return domain.BidHistory{
		SessionID: a.session.ID,
		Mode:      a.session.Mode,
		Entries:   entries,
	}
}

// Bid returns the current state of one of the session's bids.
func (a *AuctionSession) Bid(bidID string) (domain.Bid, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.byID[bidID]
	if !ok {
		return domain.Bid{}, false
	}
	return copyBid(b), true
}

func copyBid(b *domain.Bid) domain.Bid {
	out := *b
	if b.WithdrawnAt != nil {
		at := *b.WithdrawnAt
		out.WithdrawnAt = &at
	}
	return out
}

// Restore replays persisted bids into a freshly built session, bypassing
// validation. Bids are applied in sequence order; any later bid from the same
// dealer supersedes an earlier live one.
func (a *AuctionSession) Restore(bids []*domain.Bid) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sorted := make([]*domain.Bid, len(bids))
	copy(sorted, bids)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for _, src := range sorted {
		bid := *src
		if prev, ok := a.live[bid.BidderID]; ok {
			markWithdrawn(prev, bid.PlacedAt)
		}
		a.record(&bid)
		if bid.Status != domain.BidLive {
			delete(a.live, bid.BidderID)
		}
		if bid.Seq > a.seq {
			a.seq = bid.Seq
		}
		a.version++
	}
}

func (a *AuctionSession) record(bid *domain.Bid) {
	if _, seen := a.labels[bid.BidderID]; !seen {
		a.labels[bid.BidderID] = DealerLabel(len(a.labels))
	}
	a.live[bid.BidderID] = bid
	a.byID[bid.ID] = bid
	a.history = append(a.history, bid)
}

func markWithdrawn(bid *domain.Bid, at time.Time) {
	bid.Status = domain.BidWithdrawn
	withdrawnAt := at
	bid.WithdrawnAt = &withdrawnAt
}

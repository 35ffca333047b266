package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is the catalog item a session auctions. Price is the floor (cash
// offer) in forward mode and the informational starting price in reverse mode.
type Listing struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Year  int             `json:"year,omitempty"`
	Make  string          `json:"make,omitempty"`
	Model string          `json:"model,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// Session is the persisted description of one listing's auction.
type Session struct {
	ID         string          `json:"id"`
	Listing    Listing         `json:"listing"`
	Mode       SessionMode     `json:"mode"`
	FloorPrice decimal.Decimal `json:"floor_price"`
	Deadline   time.Time       `json:"deadline"`
	Status     SessionStatus   `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	EndedAt    *time.Time      `json:"ended_at,omitempty"`
}

// SessionInfo is a read view of a session at a point in time.
type SessionInfo struct {
	Session
	RemainingSeconds int64 `json:"remaining_seconds"`
	LiveBids         int   `json:"live_bids"`
}

type Bid struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	BidderID    string          `json:"dealer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Perks       string          `json:"perks,omitempty"`
	PlacedAt    time.Time       `json:"placed_at"`
	Seq         int64           `json:"seq"`
	Status      BidStatus       `json:"status"`
	WithdrawnAt *time.Time      `json:"withdrawn_at,omitempty"`
}

type LeaderboardEntry struct {
	Rank            int             `json:"rank"`
	BidID           string          `json:"bid_id"`
	BidderID        string          `json:"dealer_id,omitempty"`
	AnonymizedLabel string          `json:"label"`
	Amount          decimal.Decimal `json:"amount"`
	Perks           string          `json:"perks,omitempty"`
	PlacedAt        time.Time       `json:"placed_at"`
	IsCurrentDealer bool            `json:"is_current_dealer"`
}

// Leaderboard is the ranked view of a session's live bids. Version is the
// session's mutation counter at the time the view was taken.
type Leaderboard struct {
	SessionID string             `json:"session_id"`
	Mode      SessionMode        `json:"mode"`
	Status    SessionStatus      `json:"status"`
	Version   int64              `json:"version"`
	Entries   []LeaderboardEntry `json:"entries"`
}

// ViewFor returns the leaderboard as the given dealer should see it. The
// viewer's own row is flagged; in reverse mode every other dealer's id is
// removed so only the anonymized label remains.
func (l Leaderboard) ViewFor(viewerID string) Leaderboard {
	view := l
	view.Entries = make([]LeaderboardEntry, len(l.Entries))
	for i, e := range l.Entries {
		e.IsCurrentDealer = viewerID != "" && e.BidderID == viewerID
		if l.Mode == ModeReverse && !e.IsCurrentDealer {
			e.BidderID = ""
		}
		view.Entries[i] = e
	}
	return view
}

// HistoryEntry is one accepted bid together with its dealer's pseudonym.
type HistoryEntry struct {
	Bid
	AnonymizedLabel string `json:"label"`
	IsCurrentDealer bool   `json:"is_current_dealer"`
}

// BidHistory is every bid a session accepted, withdrawn ones included, in
// acceptance order.
type BidHistory struct {
	SessionID string         `json:"session_id"`
	Mode      SessionMode    `json:"mode"`
	Entries   []HistoryEntry `json:"entries"`
}

// ViewFor applies the same anonymization as Leaderboard.ViewFor.
func (h BidHistory) ViewFor(viewerID string) BidHistory {
	view := h
	view.Entries = make([]HistoryEntry, len(h.Entries))
	for i, e := range h.Entries {
		e.IsCurrentDealer = viewerID != "" && e.BidderID == viewerID
		if h.Mode == ModeReverse && !e.IsCurrentDealer {
			e.BidderID = ""
		}
		view.Entries[i] = e
	}
	return view
}

// Leader returns the top entry, if any.
func (l Leaderboard) Leader() (LeaderboardEntry, bool) {
	if len(l.Entries) == 0 {
		return LeaderboardEntry{}, false
	}
	return l.Entries[0], true
}

type EventType string

const (
	EventBidPlaced    EventType = "bid_placed"
	EventBidWithdrawn EventType = "bid_withdrawn"
	EventSessionEnded EventType = "session_ended"
)

type EndReason string

const (
	EndReasonDeadline EndReason = "deadline"
	EndReasonClosed   EndReason = "closed"
)

// AuctionEvent travels over the event bus and to session-ended sinks.
type AuctionEvent struct {
	Type        EventType    `json:"type"`
	SessionID   string       `json:"session_id"`
	ListingID   string       `json:"listing_id,omitempty"`
	BidderID    string       `json:"dealer_id,omitempty"`
	BidID       string       `json:"bid_id,omitempty"`
	EndReason   EndReason    `json:"end_reason,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Leaderboard *Leaderboard `json:"leaderboard,omitempty"`
}

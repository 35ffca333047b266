package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleBoard(mode SessionMode) Leaderboard {
	return Leaderboard{
		SessionID: "s1",
		Mode:      mode,
		Status:    SessionActive,
		Entries: []LeaderboardEntry{
			{Rank: 1, BidID: "b2", BidderID: "dealer-b", AnonymizedLabel: "Dealer B", Amount: decimal.NewFromInt(24500)},
			{Rank: 2, BidID: "b1", BidderID: "dealer-a", AnonymizedLabel: "Dealer A", Amount: decimal.NewFromInt(25000)},
		},
	}
}

func TestLeaderboard_ViewFor_Reverse(t *testing.T) {
	board := sampleBoard(ModeReverse)

	view := board.ViewFor("dealer-a")

	require.Len(t, view.Entries, 2)
	require.Empty(t, view.Entries[0].BidderID, "competitor identity must be hidden in reverse mode")
	require.Equal(t, "Dealer B", view.Entries[0].AnonymizedLabel)
	require.False(t, view.Entries[0].IsCurrentDealer)
	require.Equal(t, "dealer-a", view.Entries[1].BidderID)
	require.True(t, view.Entries[1].IsCurrentDealer)

	// the source board is untouched
	require.Equal(t, "dealer-b", board.Entries[0].BidderID)
	require.False(t, board.Entries[1].IsCurrentDealer)
}

func TestLeaderboard_ViewFor_Forward(t *testing.T) {
	view := sampleBoard(ModeForward).ViewFor("dealer-b")

	require.Equal(t, "dealer-b", view.Entries[0].BidderID)
	require.True(t, view.Entries[0].IsCurrentDealer)
	require.Equal(t, "dealer-a", view.Entries[1].BidderID)
	require.False(t, view.Entries[1].IsCurrentDealer)
}

func TestLeaderboard_ViewFor_AnonymousViewer(t *testing.T) {
	view := sampleBoard(ModeReverse).ViewFor("")
	for _, e := range view.Entries {
		require.Empty(t, e.BidderID)
		require.False(t, e.IsCurrentDealer)
	}
}

func TestBidHistory_ViewFor(t *testing.T) {
	history := BidHistory{
		SessionID: "s1",
		Mode:      ModeReverse,
		Entries: []HistoryEntry{
			{Bid: Bid{ID: "b1", BidderID: "dealer-a", Status: BidWithdrawn}, AnonymizedLabel: "Dealer A"},
			{Bid: Bid{ID: "b2", BidderID: "dealer-b", Status: BidLive}, AnonymizedLabel: "Dealer B"},
		},
	}

	view := history.ViewFor("dealer-b")
	require.Empty(t, view.Entries[0].BidderID)
	require.Equal(t, "Dealer A", view.Entries[0].AnonymizedLabel)
	require.Equal(t, "dealer-b", view.Entries[1].BidderID)
	require.True(t, view.Entries[1].IsCurrentDealer)
	require.Equal(t, "dealer-a", history.Entries[0].BidderID)

	anonymous := history.ViewFor("")
	require.Empty(t, anonymous.Entries[0].BidderID)
	require.Empty(t, anonymous.Entries[1].BidderID)

	history.Mode = ModeForward
	require.Equal(t, "dealer-a", history.ViewFor("dealer-b").Entries[0].BidderID)
}

func TestLeaderboard_Leader(t *testing.T) {
	_, ok := Leaderboard{}.Leader()
	require.False(t, ok)

	leader, ok := sampleBoard(ModeReverse).Leader()
	require.True(t, ok)
	require.Equal(t, "b2", leader.BidID)
}

func TestRejection_Is(t *testing.T) {
	err := fmt.Errorf("place bid: %w", Reject(ReasonBelowFloor, "Bid must be greater than %s", "$7,725.00"))

	require.ErrorIs(t, err, ErrBelowFloor)
	require.False(t, errors.Is(err, ErrSessionEnded))

	r, ok := AsRejection(err)
	require.True(t, ok)
	require.Equal(t, ReasonBelowFloor, r.Reason)
	require.Equal(t, "Bid must be greater than $7,725.00", r.Message())

	_, ok = AsRejection(errors.New("boom"))
	require.False(t, ok)
}

func TestRejection_DefaultMessage(t *testing.T) {
	require.Equal(t, "This auction has ended", ErrSessionEnded.Message())
	require.Equal(t, "rejected: not_owner", ErrNotOwner.Error())
}

func TestPersistenceError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &PersistenceError{Op: "save", BidID: "b1", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "b1")
}

func TestEnums_JSON(t *testing.T) {
	bid := Bid{ID: "b1", Status: BidWithdrawn, Amount: decimal.RequireFromString("7726.50")}
	raw, err := json.Marshal(bid)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"status":"withdrawn"`)
	require.Contains(t, string(raw), `"amount":"7726.5"`)

	var decoded Bid
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, BidWithdrawn, decoded.Status)
	require.True(t, decoded.Amount.Equal(bid.Amount))

	var info struct {
		Mode   SessionMode   `json:"mode"`
		Status SessionStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"reverse","status":"ended"}`), &info))
	require.Equal(t, ModeReverse, info.Mode)
	require.Equal(t, SessionEnded, info.Status)

	require.Error(t, json.Unmarshal([]byte(`{"mode":"dutch"}`), &info))
}

func TestParseSessionMode(t *testing.T) {
	m, err := ParseSessionMode(" Forward ")
	require.NoError(t, err)
	require.Equal(t, ModeForward, m)

	_, err = ParseSessionMode("")
	require.Error(t, err)
}

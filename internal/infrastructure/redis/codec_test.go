package redis

import (
	"testing"
	"time"

	"auction-system/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEventCodec(t *testing.T) {
	placedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.AuctionEvent{
		Type:      domain.EventBidPlaced,
		SessionID: "session_1",
		BidderID:  "dealer_a",
		BidID:     "bid_1",
		Timestamp: placedAt,
		Leaderboard: &domain.Leaderboard{
			SessionID: "session_1",
			Mode:      domain.ModeReverse,
			Status:    domain.SessionActive,
			Version:   3,
			Entries: []domain.LeaderboardEntry{{
				Rank:            1,
				BidID:           "bid_1",
				BidderID:        "dealer_a",
				AnonymizedLabel: "Dealer A",
				Amount:          decimal.RequireFromString("24500.00"),
				Perks:           "free floor mats",
				PlacedAt:        placedAt,
			}},
		},
	}

	data, err := encodeEvent(event)
	require.NoError(t, err)

	decoded, err := decodeEvent(string(data))
	require.NoError(t, err)
	require.Equal(t, event.Type, decoded.Type)
	require.Equal(t, event.SessionID, decoded.SessionID)
	require.True(t, event.Timestamp.Equal(decoded.Timestamp))
	require.NotNil(t, decoded.Leaderboard)
	require.Equal(t, domain.ModeReverse, decoded.Leaderboard.Mode)
	require.Equal(t, int64(3), decoded.Leaderboard.Version)
	require.Len(t, decoded.Leaderboard.Entries, 1)
	require.True(t, decoded.Leaderboard.Entries[0].Amount.Equal(decimal.NewFromInt(24500)))
	require.Equal(t, "free floor mats", decoded.Leaderboard.Entries[0].Perks)
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	for _, payload := range []string{
		"",
		"auction_1:bid_accepted:user:10.00:1700000000",
		`{"type":"bid_placed"}`,
		`{"session_id":"s"}`,
	} {
		_, err := decodeEvent(payload)
		require.Error(t, err, payload)
	}
}

func TestKeys(t *testing.T) {
	require.Equal(t, "session:abc:leaderboard", leaderboardKey("abc"))
	require.Equal(t, "session:abc:status", statusKey("abc"))
}

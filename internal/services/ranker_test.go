package services

import (
	"fmt"
	"testing"
	"time"

	"auction-system/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func bid(id, dealer, amount string, placedAt time.Time, seq int64) *domain.Bid {
	return &domain.Bid{
		ID:       id,
		BidderID: dealer,
		Amount:   dec(amount),
		PlacedAt: placedAt,
		Seq:      seq,
		Status:   domain.BidLive,
	}
}

func bidIDs(entries []domain.LeaderboardEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.BidID
	}
	return ids
}

func TestRankForward(t *testing.T) {
	bids := []*domain.Bid{
		bid("b1", "a", "8000", t0, 1),
		bid("b2", "b", "9000", t0.Add(time.Second), 2),
		bid("b3", "c", "8000", t0.Add(-time.Second), 3),
	}

	entries := RankBids(domain.ModeForward, bids, map[string]string{"a": "Dealer A", "b": "Dealer B", "c": "Dealer C"})
	require.Equal(t, []string{"b2", "b3", "b1"}, bidIDs(entries))
	for i, e := range entries {
		require.Equal(t, i+1, e.Rank)
	}
	require.Equal(t, "Dealer B", entries[0].AnonymizedLabel)
}

func TestRankReverse(t *testing.T) {
	bids := []*domain.Bid{
		bid("b1", "a", "25000", t0, 1),
		bid("b2", "b", "24500", t0.Add(time.Second), 2),
	}
	bids[0].Perks = "free oil changes for a year"

	entries := RankBids(domain.ModeReverse, bids, nil)
	require.Equal(t, []string{"b2", "b1"}, bidIDs(entries))
	require.Equal(t, "free oil changes for a year", entries[1].Perks)
}

func TestRankTieBreaksBySeq(t *testing.T) {
	bids := []*domain.Bid{
		bid("b2", "b", "8000", t0, 2),
		bid("b1", "a", "8000", t0, 1),
	}

	require.Equal(t, []string{"b1", "b2"}, bidIDs(RankBids(domain.ModeForward, bids, nil)))
	require.Equal(t, []string{"b1", "b2"}, bidIDs(RankBids(domain.ModeReverse, bids, nil)))
}

func TestRankSkipsNonLive(t *testing.T) {
	withdrawn := bid("b1", "a", "9999", t0, 1)
	withdrawn.Status = domain.BidWithdrawn
	accepted := bid("b3", "c", "9998", t0, 3)
	accepted.Status = domain.BidAccepted

	entries := RankBids(domain.ModeForward, []*domain.Bid{withdrawn, bid("b2", "b", "8000", t0, 2), accepted}, nil)
	require.Equal(t, []string{"b2"}, bidIDs(entries))
	require.Equal(t, 1, entries[0].Rank)
}

func TestRankEmpty(t *testing.T) {
	require.Empty(t, RankBids(domain.ModeForward, nil, nil))
}

func TestDealerLabel(t *testing.T) {
	tests := map[int]string{
		0:   "Dealer A",
		1:   "Dealer B",
		25:  "Dealer Z",
		26:  "Dealer AA",
		27:  "Dealer AB",
		51:  "Dealer AZ",
		52:  "Dealer BA",
		701: "Dealer ZZ",
		702: "Dealer AAA",
	}
	for n, want := range tests {
		require.Equal(t, want, DealerLabel(n), n)
	}
}

func TestRankProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := domain.SessionMode(rapid.IntRange(1, 2).Draw(t, "mode"))
		n := rapid.IntRange(0, 30).Draw(t, "n")

		bids := make([]*domain.Bid, n)
		live := 0
		for i := range bids {
			b := &domain.Bid{
				ID:       fmt.Sprintf("bid_%02d", i),
				BidderID: fmt.Sprintf("dealer_%d", i),
				Amount:   decimal.New(rapid.Int64Range(1, 50).Draw(t, "amount"), 2),
				PlacedAt: t0.Add(time.Duration(rapid.IntRange(0, 5).Draw(t, "offset")) * time.Second),
				Seq:      int64(i + 1),
				Status:   domain.BidLive,
			}
			if rapid.Bool().Draw(t, "withdrawn") {
				b.Status = domain.BidWithdrawn
			} else {
				live++
			}
			bids[i] = b
		}

		entries := RankBids(mode, bids, nil)
		if len(entries) != live {
			t.Fatalf("got %d entries for %d live bids", len(entries), live)
		}
		for i, e := range entries {
			if e.Rank != i+1 {
				t.Fatalf("rank %d at position %d", e.Rank, i)
			}
			if i == 0 {
				continue
			}
			prev := entries[i-1]
			cmp := prev.Amount.Cmp(e.Amount)
			if mode == domain.ModeReverse {
				cmp = -cmp
			}
			if cmp < 0 {
				t.Fatalf("%s ranked above %s in mode %s", prev.Amount, e.Amount, mode)
			}
			if cmp == 0 && prev.PlacedAt.After(e.PlacedAt) {
				t.Fatalf("later bid ranked first on equal amounts")
			}
		}

		again := RankBids(mode, bids, nil)
		if fmt.Sprint(bidIDs(again)) != fmt.Sprint(bidIDs(entries)) {
			t.Fatalf("ranking is not deterministic")
		}
	})
}

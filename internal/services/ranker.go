package services

import (
	"sort"

	"auction-system/internal/domain"
)

// RankBids orders the live bids of a session. Forward mode ranks the highest
// amount first, reverse mode the lowest; equal amounts go to whoever got
// there first (placedAt, then acceptance sequence). Perks never affect rank.
// Non-live bids are skipped and ranks are contiguous from 1.
func RankBids(mode domain.SessionMode, bids []*domain.Bid, labels map[string]string) []domain.LeaderboardEntry {
	live := make([]*domain.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Status == domain.BidLive {
			live = append(live, b)
		}
	}

	sort.Slice(live, func(i, j int) bool {
		a, b := live[i], live[j]
		if cmp := a.Amount.Cmp(b.Amount); cmp != 0 {
			if mode == domain.ModeReverse {
				return cmp < 0
			}
			return cmp > 0
		}
		if !a.PlacedAt.Equal(b.PlacedAt) {
			return a.PlacedAt.Before(b.PlacedAt)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})

	entries := make([]domain.LeaderboardEntry, len(live))
	for i, b := range live {
		entries[i] = domain.LeaderboardEntry{
			Rank:            i + 1,
			BidID:           b.ID,
			BidderID:        b.BidderID,
			AnonymizedLabel: labels[b.BidderID],
			Amount:          b.Amount,
			Perks:           b.Perks,
			PlacedAt:        b.PlacedAt,
		}
	}
	return entries
}

// DealerLabel returns the pseudonym for the n-th (0-based) dealer seen in a
// session: Dealer A .. Dealer Z, Dealer AA, Dealer AB, ...
func DealerLabel(n int) string {
	var letters []byte
	for n >= 0 {
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n = n/26 - 1
	}
	return "Dealer " + string(letters)
}

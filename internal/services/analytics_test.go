package services

import (
	"errors"
	"testing"

	"auction-system/internal/domain"
	"auction-system/internal/domain/mocks"
	"auction-system/pkg/logger"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestResultRecorderStoresEndedSessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	results := mocks.NewMockResultRepository(ctrl)
	rr := NewResultRecorder(results, logger.NewNop())

	ended := &domain.AuctionEvent{
		Type:      domain.EventSessionEnded,
		SessionID: "s1",
		EndReason: domain.EndReasonDeadline,
		Leaderboard: &domain.Leaderboard{
			SessionID: "s1",
			Entries:   []domain.LeaderboardEntry{{Rank: 1, BidID: "b1", Amount: dec("8000")}},
		},
	}
	results.EXPECT().SaveResult(gomock.Any(), ended).Return(nil)

	require.NoError(t, rr.HandleEvent(ended))
}

func TestResultRecorderIgnoresBidEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	rr := NewResultRecorder(mocks.NewMockResultRepository(ctrl), logger.NewNop())

	require.NoError(t, rr.HandleEvent(&domain.AuctionEvent{Type: domain.EventBidPlaced, SessionID: "s1"}))
}

func TestResultRecorderSurfacesStorageErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	results := mocks.NewMockResultRepository(ctrl)
	rr := NewResultRecorder(results, logger.NewNop())

	results.EXPECT().SaveResult(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	require.Error(t, rr.HandleEvent(&domain.AuctionEvent{Type: domain.EventSessionEnded, SessionID: "s1"}))
}

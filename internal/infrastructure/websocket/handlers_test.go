package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auction-system/internal/clock"
	"auction-system/internal/domain"
	"auction-system/internal/domain/mocks"
	"auction-system/internal/services"
	"auction-system/pkg/logger"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, status domain.SessionStatus) (*httptest.Server, *ConnectionManager) {
	ctrl := gomock.NewController(t)
	bidRepo := mocks.NewMockBidRepository(ctrl)
	publisher := mocks.NewMockEventPublisher(ctrl)
	cache := mocks.NewMockLeaderboardCache(ctrl)
	bidRepo.EXPECT().SaveBid(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	bidRepo.EXPECT().UpdateBidStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	cache.EXPECT().SetLeaderboard(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	// sessions held by another instance, known only through the shared cache
	remote := map[string]domain.SessionStatus{
		"remote":       domain.SessionActive,
		"remote_ended": domain.SessionEnded,
	}
	cache.EXPECT().GetLeaderboard(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, sessionID string) (*domain.Leaderboard, error) {
			if _, ok := remote[sessionID]; !ok {
				return nil, domain.ErrSessionNotFound
			}
			return &domain.Leaderboard{
				SessionID: sessionID,
				Mode:      domain.ModeReverse,
				Status:    domain.SessionActive,
				Version:   2,
				Entries: []domain.LeaderboardEntry{
					{Rank: 1, BidID: "b1", BidderID: "dealer_b", AnonymizedLabel: "Dealer A"},
				},
			}, nil
		}).AnyTimes()
	cache.EXPECT().GetSessionStatus(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, sessionID string) (domain.SessionStatus, error) {
			status, ok := remote[sessionID]
			if !ok {
				return 0, domain.ErrSessionNotFound
			}
			return status, nil
		}).AnyTimes()

	registry := services.NewSessionRegistry()
	session := services.NewAuctionSession(domain.Session{
		ID:         "s1",
		Listing:    domain.Listing{ID: "listing_1", Price: decimal.NewFromInt(7725)},
		Mode:       domain.ModeForward,
		FloorPrice: decimal.NewFromInt(7725),
		Deadline:   start.Add(time.Hour),
		Status:     domain.SessionActive,
	}, services.NewBidValidator())
	if status == domain.SessionEnded {
		session.Close(start)
	}
	require.NoError(t, registry.Add(session))

	log := logger.NewNop()
	bidService := services.NewBidService(registry, bidRepo, publisher, cache, clock.NewManual(start), log)
	cm := NewConnectionManager(log)
	h := NewWebSocketHandler(bidService, cm, log)

	r := mux.NewRouter()
	r.HandleFunc("/ws/sessions/{sessionID}", h.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, cm
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) inbound {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg inbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleConnectionRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, domain.SessionActive)

	resp, err := http.Get(srv.URL + "/ws/sessions/s1")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws/sessions/missing?dealer_id=dealer_a")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleConnectionRejectsEndedSession(t *testing.T) {
	srv, _ := newTestServer(t, domain.SessionEnded)

	resp, err := http.Get(srv.URL + "/ws/sessions/s1?dealer_id=dealer_a")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSocketBidLifecycle(t *testing.T) {
	srv, cm := newTestServer(t, domain.SessionActive)
	conn := dial(t, srv, "/ws/sessions/s1?dealer_id=dealer_a")

	initial := read(t, conn)
	require.Equal(t, services.MessageLeaderboard, initial.Type)
	require.Eventually(t, func() bool { return len(cm.GetConnectionsForSession("s1")) == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.Equal(t, "pong", read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "place_bid", "amount": "7725"}))
	rejected := read(t, conn)
	require.Equal(t, "error", rejected.Type)
	var errPayload errorPayload
	require.NoError(t, json.Unmarshal(rejected.Payload, &errPayload))
	require.Equal(t, "below_floor", errPayload.Reason)
	require.Contains(t, errPayload.Message, "$7725.00")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "place_bid", "amount": "$7,726"}))
	accepted := read(t, conn)
	require.Equal(t, "bid_accepted", accepted.Type)
	var bid domain.Bid
	require.NoError(t, json.Unmarshal(accepted.Payload, &bid))
	require.Equal(t, "dealer_a", bid.BidderID)
	require.True(t, bid.Amount.Equal(decimal.NewFromInt(7726)))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "withdraw_bid", "bid_id": bid.ID}))
	require.Equal(t, "bid_withdrawn", read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "withdraw_bid", "bid_id": bid.ID}))
	notFound := read(t, conn)
	require.NoError(t, json.Unmarshal(notFound.Payload, &errPayload))
	require.Equal(t, "not_found", errPayload.Reason)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	require.Equal(t, "error", read(t, conn).Type)
}

func TestSocketReceivesBroadcasts(t *testing.T) {
	srv, cm := newTestServer(t, domain.SessionActive)
	conn := dial(t, srv, "/ws/sessions/s1?dealer_id=dealer_a")
	read(t, conn)
	require.Eventually(t, func() bool { return len(cm.GetConnectionsForSession("s1")) == 1 },
		time.Second, 10*time.Millisecond)

	board := domain.Leaderboard{SessionID: "s1", Mode: domain.ModeForward, Version: 3, Status: domain.SessionEnded}
	require.NoError(t, cm.BroadcastLeaderboard("s1", services.MessageSessionEnded, board))
	require.Equal(t, services.MessageSessionEnded, read(t, conn).Type)

	require.NoError(t, cm.CloseAndUnregisterConnections("s1"))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestSocketOnRemoteSession(t *testing.T) {
	srv, cm := newTestServer(t, domain.SessionActive)

	resp, err := http.Get(srv.URL + "/ws/sessions/remote_ended?dealer_id=dealer_a")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, "/ws/sessions/remote?dealer_id=dealer_a")
	initial := read(t, conn)
	require.Equal(t, services.MessageLeaderboard, initial.Type)
	var board domain.Leaderboard
	require.NoError(t, json.Unmarshal(initial.Payload, &board))
	require.Equal(t, int64(2), board.Version)
	require.Empty(t, board.Entries[0].BidderID)
	require.Equal(t, "Dealer A", board.Entries[0].AnonymizedLabel)

	require.Eventually(t, func() bool { return len(cm.GetConnectionsForSession("remote")) == 1 },
		time.Second, 10*time.Millisecond)

	// bids for a session owned elsewhere are refused here
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "place_bid", "amount": "24000"}))
	refused := read(t, conn)
	require.Equal(t, "error", refused.Type)
	var errPayload errorPayload
	require.NoError(t, json.Unmarshal(refused.Payload, &errPayload))
	require.Equal(t, "unknown_session", errPayload.Reason)
}

package websocket

import (
	"context"
	"net/http"
	"time"

	"auction-system/internal/domain"
	"auction-system/internal/services"
	"auction-system/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is what dealers send over the socket.
type clientMessage struct {
	Type   string `json:"type"`
	Amount string `json:"amount,omitempty"`
	Perks  string `json:"perks,omitempty"`
	BidID  string `json:"bid_id,omitempty"`
}

type errorPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type WebSocketHandler struct {
	bidService  *services.BidService
	connManager *ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(bidService *services.BidService, connManager *ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		bidService:  bidService,
		connManager: connManager,
		log:         log,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	dealerID := r.URL.Query().Get("dealer_id")

	if dealerID == "" {
		http.Error(w, "dealer_id required", http.StatusBadRequest)
		return
	}

	board, err := h.bidService.GetLeaderboard(r.Context(), sessionID)
	if err != nil {
		h.log.Info("Rejected connection - unknown session", "session_id", sessionID)
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if board.Status == domain.SessionEnded {
		h.log.Info("Rejected connection - session has ended", "session_id", sessionID)
		http.Error(w, "session has already ended", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, dealerID, sessionID)
	if err := h.connManager.RegisterConnection(dealerID, sessionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	if err := wsConn.Send(Message{Type: services.MessageLeaderboard, Payload: board.ViewFor(dealerID)}); err != nil {
		h.log.Warn("Failed to send initial leaderboard", "dealer_id", dealerID, "error", err)
	}

	go h.handleMessages(wsConn)
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection) {
	defer func() {
		h.connManager.unregisterIfCurrent(conn)
		conn.conn.Close()
	}()

	conn.conn.SetReadLimit(maxMessageSize)
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Failed to read message", "dealer_id", conn.dealerID, "error", err)
			}
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))

		h.dispatch(conn, msg)
	}
}

func (h *WebSocketHandler) dispatch(conn *WebSocketConnection, msg clientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch msg.Type {
	case "place_bid":
		h.handlePlaceBid(ctx, conn, msg)
	case "withdraw_bid":
		h.handleWithdrawBid(ctx, conn, msg)
	case "ping":
		conn.Send(Message{Type: "pong"})
	default:
		conn.Send(Message{Type: "error", Payload: errorPayload{Reason: "bad_request", Message: "unknown message type"}})
	}
}

func (h *WebSocketHandler) handlePlaceBid(ctx context.Context, conn *WebSocketConnection, msg clientMessage) {
	amount, err := services.ParseAmount(msg.Amount)
	if err != nil {
		h.sendError(conn, err)
		return
	}

	result, err := h.bidService.PlaceBid(ctx, conn.sessionID, conn.dealerID, amount, msg.Perks)
	if result == nil {
		h.sendError(conn, err)
		return
	}
	conn.Send(Message{Type: "bid_accepted", Payload: result.Bid})
}

func (h *WebSocketHandler) handleWithdrawBid(ctx context.Context, conn *WebSocketConnection, msg clientMessage) {
	board, err := h.bidService.WithdrawBid(ctx, conn.sessionID, conn.dealerID, msg.BidID)
	if board == nil {
		h.sendError(conn, err)
		return
	}
	conn.Send(Message{Type: "bid_withdrawn", Payload: map[string]string{"bid_id": msg.BidID}})
}

func (h *WebSocketHandler) sendError(conn *WebSocketConnection, err error) {
	payload := errorPayload{Reason: "internal", Message: "Something went wrong, please try again"}
	if rejection, ok := domain.AsRejection(err); ok {
		payload = errorPayload{Reason: rejection.Reason.String(), Message: rejection.Message()}
	} else {
		h.log.Error("Bid operation failed", "dealer_id", conn.dealerID,
			"session_id", conn.sessionID, "error", err)
	}
	conn.Send(Message{Type: "error", Payload: payload})
}

package handlers

import (
	"net/http"

	"auction-system/internal/api/middleware"
	"auction-system/internal/infrastructure/websocket"
	"auction-system/internal/services"
	"auction-system/pkg/logger"

	"github.com/gorilla/mux"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
	log       logger.Logger
}

func NewWebSocketHandlers(bidService *services.BidService, connManager *websocket.ConnectionManager, log logger.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		wsHandler: websocket.NewWebSocketHandler(bidService, connManager, log),
		log:       log,
	}
}

func (h *WebSocketHandlers) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}

// Router serves /ws/sessions/{sessionID}. It is mounted into the echo server.
func (h *WebSocketHandlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORSWithLogging(h.log))
	r.HandleFunc("/ws/sessions/{sessionID}", h.HandleConnection).Methods(http.MethodGet, http.MethodOptions)
	return r
}

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"auction-system/internal/domain"
	"auction-system/internal/services"
	"auction-system/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type SessionHandler struct {
	auctionManager  *services.AuctionManager
	bidService      *services.BidService
	defaultDuration time.Duration
	log             logger.Logger
}

type ListingRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Price string `json:"price"`
}

type CreateSessionRequest struct {
	Listing         ListingRequest `json:"listing"`
	Mode            string         `json:"mode"`
	DurationSeconds int64          `json:"duration_seconds"`
}

type PlaceBidRequest struct {
	DealerID string `json:"dealer_id"`
	Amount   string `json:"amount"`
	Perks    string `json:"perks"`
}

func NewSessionHandler(auctionManager *services.AuctionManager, bidService *services.BidService,
	defaultDuration time.Duration, log logger.Logger) *SessionHandler {
	return &SessionHandler{
		auctionManager:  auctionManager,
		bidService:      bidService,
		defaultDuration: defaultDuration,
		log:             log,
	}
}

// Register mounts the REST routes on g.
func (h *SessionHandler) Register(g *echo.Group) {
	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions/:id", h.GetSession)
	g.POST("/sessions/:id/close", h.CloseSession)
	g.GET("/sessions/:id/leaderboard", h.GetLeaderboard)
	g.GET("/sessions/:id/bids", h.GetBidHistory)
	g.POST("/sessions/:id/bids", h.PlaceBid)
	g.DELETE("/sessions/:id/bids/:bidID", h.WithdrawBid)
}

func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		h.log.Warn("Failed to bind request", "error", err)
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Listing.ID) == "" {
		return fail(c, http.StatusBadRequest, "Listing id is required")
	}

	mode, err := domain.ParseSessionMode(req.Mode)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Mode must be forward or reverse")
	}

	price, err := services.ParseAmount(req.Listing.Price)
	if err != nil || !price.IsPositive() {
		return fail(c, http.StatusBadRequest, "Listing price must be a positive amount")
	}

	duration := h.defaultDuration
	if req.DurationSeconds < 0 {
		return fail(c, http.StatusBadRequest, "Duration must be positive")
	}
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds) * time.Second
	}

	listing := domain.Listing{
		ID:    req.Listing.ID,
		Title: req.Listing.Title,
		Year:  req.Listing.Year,
		Make:  req.Listing.Make,
		Model: req.Listing.Model,
		Price: price,
	}

	info, err := h.auctionManager.CreateSession(c.Request().Context(), listing, mode, duration)
	if err != nil {
		h.log.Error("Failed to create session", "listing_id", listing.ID, "error", err)
		return writeError(c, err)
	}

	return ok(c, http.StatusCreated, "Session created", info)
}

func (h *SessionHandler) GetSession(c echo.Context) error {
	info, err := h.auctionManager.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, "", info)
}

func (h *SessionHandler) CloseSession(c echo.Context) error {
	sessionID := c.Param("id")
	board, err := h.auctionManager.CloseSession(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	h.log.Info("Session closed by request", "session_id", sessionID)
	return ok(c, http.StatusOK, "Session closed", board)
}

func (h *SessionHandler) GetLeaderboard(c echo.Context) error {
	board, err := h.bidService.GetLeaderboardFor(c.Request().Context(), c.Param("id"), c.QueryParam("dealer_id"))
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, "", board)
}

func (h *SessionHandler) GetBidHistory(c echo.Context) error {
	history, err := h.bidService.BidHistory(c.Param("id"), c.QueryParam("dealer_id"))
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, "", history)
}

func (h *SessionHandler) PlaceBid(c echo.Context) error {
	sessionID := c.Param("id")

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	amount, err := services.ParseAmount(req.Amount)
	if err != nil {
		return writeError(c, err)
	}

	result, err := h.bidService.PlaceBid(c.Request().Context(), sessionID, req.DealerID, amount, req.Perks)
	if result == nil {
		return writeError(c, err)
	}

	payload := struct {
		Bid         domain.Bid         `json:"bid"`
		Leaderboard domain.Leaderboard `json:"leaderboard"`
	}{result.Bid, result.Leaderboard.ViewFor(req.DealerID)}

	return ok(c, http.StatusCreated, bidMessage(result.Bid.Amount, err), payload)
}

func (h *SessionHandler) WithdrawBid(c echo.Context) error {
	sessionID := c.Param("id")
	dealerID := c.QueryParam("dealer_id")

	board, err := h.bidService.WithdrawBid(c.Request().Context(), sessionID, dealerID, c.Param("bidID"))
	if board == nil {
		return writeError(c, err)
	}

	message := "Bid withdrawn"
	var persistErr *domain.PersistenceError
	if errors.As(err, &persistErr) {
		message = "Bid withdrawn; saving is delayed"
	}
	return ok(c, http.StatusOK, message, board.ViewFor(dealerID))
}

func bidMessage(amount decimal.Decimal, err error) string {
	var persistErr *domain.PersistenceError
	if errors.As(err, &persistErr) {
		return "Bid of $" + amount.StringFixed(2) + " placed; saving is delayed"
	}
	return "Bid of $" + amount.StringFixed(2) + " placed"
}

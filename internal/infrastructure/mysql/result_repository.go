package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"auction-system/internal/domain"

	"github.com/shopspring/decimal"
)

// MySQLResultRepository records the final standings of ended sessions.
type MySQLResultRepository struct {
	db *sql.DB
}

func NewMySQLResultRepository(db *sql.DB) *MySQLResultRepository {
	return &MySQLResultRepository{db: db}
}

type resultRow struct {
	leaderBidID    sql.NullString
	leaderDealerID sql.NullString
	leaderAmount   decimal.NullDecimal
	liveBids       int
	standings      []byte
}

func buildResultRow(board *domain.Leaderboard) (*resultRow, error) {
	standings, err := json.Marshal(board.Entries)
	if err != nil {
		return nil, fmt.Errorf("encode standings: %w", err)
	}

	row := &resultRow{liveBids: len(board.Entries), standings: standings}
	if leader, ok := board.Leader(); ok {
		row.leaderBidID = sql.NullString{String: leader.BidID, Valid: true}
		row.leaderDealerID = sql.NullString{String: leader.BidderID, Valid: true}
		row.leaderAmount = decimal.NullDecimal{Decimal: leader.Amount, Valid: true}
	}
	return row, nil
}

// SaveResult is idempotent per session; a replayed event overwrites the row.
func (r *MySQLResultRepository) SaveResult(ctx context.Context, event *domain.AuctionEvent) error {
	if event.Leaderboard == nil {
		return fmt.Errorf("session %s ended without a leaderboard", event.SessionID)
	}

	row, err := buildResultRow(event.Leaderboard)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO session_results (session_id, listing_id, mode, end_reason, ended_at,
            leader_bid_id, leader_dealer_id, leader_amount, live_bids, standings, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            end_reason = VALUES(end_reason), ended_at = VALUES(ended_at),
            leader_bid_id = VALUES(leader_bid_id), leader_dealer_id = VALUES(leader_dealer_id),
            leader_amount = VALUES(leader_amount), live_bids = VALUES(live_bids),
            standings = VALUES(standings), recorded_at = VALUES(recorded_at)
    `
	_, err = r.db.ExecContext(ctx, query,
		event.SessionID, event.ListingID, int(event.Leaderboard.Mode), string(event.EndReason),
		event.Timestamp.UTC(), row.leaderBidID, row.leaderDealerID, row.leaderAmount,
		row.liveBids, row.standings, time.Now().UTC())
	return err
}

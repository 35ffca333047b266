package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auction-system/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

// A stored bid only ever leaves the live state. MySQL applies the assignments
// left to right, so withdrawn_at is set while status still holds the old value.
var (
	saveBidQuery = fmt.Sprintf(`
        INSERT INTO bids (id, session_id, dealer_id, amount, perks, placed_at, seq, status, withdrawn_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            withdrawn_at = IF(status = %[1]d, VALUES(withdrawn_at), withdrawn_at),
            status = IF(status = %[1]d, VALUES(status), status)
    `, int(domain.BidLive))

	updateBidStatusQuery = fmt.Sprintf(
		`UPDATE bids SET status = ?, withdrawn_at = ? WHERE id = ? AND status = %d`, int(domain.BidLive))
)

// SaveBid upserts the full bid snapshot. An existing row that is no longer
// live keeps its status.
func (r *MySQLBidRepository) SaveBid(ctx context.Context, bid *domain.Bid) error {
	_, err := r.db.ExecContext(ctx, saveBidQuery,
		bid.ID, bid.SessionID, bid.BidderID, bid.Amount, bid.Perks,
		bid.PlacedAt.UTC(), bid.Seq, int(bid.Status), nullTime(bid.WithdrawnAt))
	return err
}

// UpdateBidStatus moves a live bid to status. It returns
// domain.ErrRecordNotFound when no live row with that id exists.
func (r *MySQLBidRepository) UpdateBidStatus(ctx context.Context, bidID string, status domain.BidStatus, at time.Time) error {
	var withdrawnAt interface{}
	if status == domain.BidWithdrawn {
		withdrawnAt = at.UTC()
	}

	result, err := r.db.ExecContext(ctx, updateBidStatusQuery, int(status), withdrawnAt, bidID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *MySQLBidRepository) GetBidHistory(ctx context.Context, sessionID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, session_id, dealer_id, amount, perks, placed_at, seq, status, withdrawn_at
        FROM bids
        WHERE session_id = ?
        ORDER BY seq ASC
    `

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}

	return bids, rows.Err()
}

func scanBid(row rowScanner) (*domain.Bid, error) {
	var (
		bid         domain.Bid
		status      int
		withdrawnAt sql.NullTime
	)

	err := row.Scan(&bid.ID, &bid.SessionID, &bid.BidderID, &bid.Amount, &bid.Perks,
		&bid.PlacedAt, &bid.Seq, &status, &withdrawnAt)
	if err != nil {
		return nil, err
	}

	bid.Status = domain.BidStatus(status)
	if withdrawnAt.Valid {
		t := withdrawnAt.Time
		bid.WithdrawnAt = &t
	}
	return &bid, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

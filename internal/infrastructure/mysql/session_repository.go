package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-system/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLSessionRepository struct {
	db *sql.DB
}

func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

const sessionColumns = `id, listing_id, listing_title, listing_year, listing_make, listing_model,
        listing_price, mode, floor_price, deadline, status, created_at, ended_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		session domain.Session
		mode    int
		status  int
		endedAt sql.NullTime
	)

	err := row.Scan(&session.ID, &session.Listing.ID, &session.Listing.Title, &session.Listing.Year,
		&session.Listing.Make, &session.Listing.Model, &session.Listing.Price,
		&mode, &session.FloorPrice, &session.Deadline, &status, &session.CreatedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	session.Mode = domain.SessionMode(mode)
	session.Status = domain.SessionStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	return &session, nil
}

func (r *MySQLSessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
        INSERT INTO sessions (id, listing_id, listing_title, listing_year, listing_make, listing_model,
            listing_price, mode, floor_price, deadline, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.Listing.ID, session.Listing.Title, session.Listing.Year,
		session.Listing.Make, session.Listing.Model, session.Listing.Price,
		int(session.Mode), session.FloorPrice, session.Deadline.UTC(), int(session.Status),
		session.CreatedAt.UTC(), time.Now().UTC())
	return err
}

func (r *MySQLSessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	return session, err
}

func (r *MySQLSessionRepository) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, endedAt time.Time) error {
	query := `UPDATE sessions SET status = ?, ended_at = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, int(status), endedAt.UTC(), time.Now().UTC(), sessionID)
	return err
}

func (r *MySQLSessionRepository) GetActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE status = ? ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, int(domain.SessionActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

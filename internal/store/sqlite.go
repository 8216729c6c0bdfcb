// apps/go-server/internal/store/sqlite.go
//
// SQLite-backed Store. Schema lives in assets/sql and is applied at startup.
//
// Notes:
//   - Timestamps are stored as fixed-width RFC3339 UTC text.
//   - UNIQUE(game_id, frame, roll_number) backs the no-duplicate-slot rule even
//     if two processes share the database file.
//   - AppendRoll inserts the roll and flips games.completed in one transaction.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/bowling/apps/go-server/internal/game"
)

// SQLite is a Store over a *sql.DB opened with the sqlite3 driver.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite wraps an already-migrated database handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLite) CreateGame(ctx context.Context, title *string) (*game.Game, error) {
	g := &game.Game{ID: uuid.NewString(), CreatedAt: s.now(), Title: cloneTitle(title)}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, title, completed, created_at) VALUES (?, ?, 0, ?)`,
		g.ID, g.Title, formatTime(g.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	return g, nil
}

func (s *SQLite) ListGames(ctx context.Context) ([]game.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, completed, created_at FROM games ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	out := []game.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *SQLite) Snapshot(ctx context.Context, gameID string) (*game.Game, []game.Roll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	g, err := scanGame(tx.QueryRowContext(ctx,
		`SELECT id, title, completed, created_at FROM games WHERE id = ?`, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx, `
        SELECT id, game_id, frame, roll_number, knocked_down_pins, created_at
        FROM rolls
        WHERE game_id = ?
        ORDER BY frame ASC, roll_number ASC`, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("query rolls: %w", err)
	}
	defer rows.Close()

	rolls := []game.Roll{}
	for rows.Next() {
		var r game.Roll
		var created string
		if err := rows.Scan(&r.ID, &r.GameID, &r.Frame, &r.RollNumber, &r.Pins, &created); err != nil {
			return nil, nil, fmt.Errorf("scan roll: %w", err)
		}
		r.CreatedAt = parseTime(created)
		rolls = append(rolls, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return g, rolls, tx.Commit()
}

func (s *SQLite) AppendRoll(ctx context.Context, r game.Roll, complete bool) (*game.Roll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, r.GameID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup game: %w", err)
	}

	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO rolls (id, game_id, frame, roll_number, knocked_down_pins, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.GameID, r.Frame, r.RollNumber, r.Pins, formatTime(r.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert roll: %w", err)
	}
	if complete {
		if _, err := tx.ExecContext(ctx, `UPDATE games SET completed = 1 WHERE id = ?`, r.GameID); err != nil {
			return nil, fmt.Errorf("complete game: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit roll: %w", err)
	}
	return &r, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*game.Game, error) {
	var g game.Game
	var title sql.NullString
	var created string
	if err := row.Scan(&g.ID, &title, &g.Completed, &created); err != nil {
		return nil, err
	}
	if title.Valid {
		g.Title = &title.String
	}
	g.CreatedAt = parseTime(created)
	return &g, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// parseTime parses stored timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

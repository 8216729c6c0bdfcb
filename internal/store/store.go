// apps/go-server/internal/store/store.go
//
// Persistence boundary for games and their roll ledgers.
// The engines never touch storage; the lifecycle reads snapshots through this
// interface and appends rolls through it.
//
// Ordering contract: Rolls and Snapshot return rolls ordered by
// (frame, roll_number), which for a legal ledger equals creation order.

package store

import (
	"context"
	"errors"

	"github.com/robalobadob/bowling/apps/go-server/internal/game"
)

// ErrNotFound is returned when a game id does not exist.
var ErrNotFound = errors.New("not found")

// Store persists games and their append-only roll ledgers.
// Implementations may be backed by memory (memory.go) or SQLite (sqlite.go).
type Store interface {
	// CreateGame inserts a new open game.
	CreateGame(ctx context.Context, title *string) (*game.Game, error)

	// ListGames returns all games, oldest first.
	ListGames(ctx context.Context) ([]game.Game, error)

	// Snapshot returns the game and its ordered rolls as one consistent read.
	// Returns ErrNotFound if the game does not exist.
	Snapshot(ctx context.Context, gameID string) (*game.Game, []game.Roll, error)

	// AppendRoll records r in its game's ledger, assigning id and timestamp.
	// When complete is true the game's completion flag is set in the same
	// atomic step, so readers never see the roll without the flag.
	AppendRoll(ctx context.Context, r game.Roll, complete bool) (*game.Roll, error)
}

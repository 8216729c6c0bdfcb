// apps/go-server/internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used for tests and for STORAGE=memory runs where durability is not required.
//
// Characteristics:
//   - Games and ledgers kept in maps keyed by game id.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Returned values are copies; callers cannot mutate stored state.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/bowling/apps/go-server/internal/game"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex            // guards all fields below
	order []string                // game ids in creation order
	games map[string]*game.Game   // keyed by Game.ID
	rolls map[string][]game.Roll  // ledger per game id
	now   func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		games: make(map[string]*game.Game),
		rolls: make(map[string][]game.Roll),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *memory) CreateGame(ctx context.Context, title *string) (*game.Game, error) {
	g := &game.Game{ID: uuid.NewString(), CreatedAt: m.now(), Title: cloneTitle(title)}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	m.order = append(m.order, g.ID)
	out := *g
	return &out, nil
}

func (m *memory) ListGames(ctx context.Context) ([]game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.Game, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.games[id])
	}
	return out, nil
}

func (m *memory) Snapshot(ctx context.Context, gameID string) (*game.Game, []game.Roll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	out := *g
	return &out, slices.Clone(m.rolls[gameID]), nil
}

func (m *memory) AppendRoll(ctx context.Context, r game.Roll, complete bool) (*game.Roll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[r.GameID]
	if !ok {
		return nil, ErrNotFound
	}
	for _, prev := range m.rolls[r.GameID] {
		if prev.Frame == r.Frame && prev.RollNumber == r.RollNumber {
			return nil, fmt.Errorf("append roll: frame %d roll %d already recorded", r.Frame, r.RollNumber)
		}
	}
	r.ID = uuid.NewString()
	r.CreatedAt = m.now()
	m.rolls[r.GameID] = append(m.rolls[r.GameID], r)
	if complete {
		g.Completed = true
	}
	return &r, nil
}

func cloneTitle(title *string) *string {
	if title == nil {
		return nil
	}
	t := *title
	return &t
}

// apps/go-server/internal/lifecycle/lifecycle.go
//
// Game lifecycle: runs the engines against one game at a time.
// Responsibilities:
//   - Reject rolls for completed games.
//   - Delegate placement, append the roll, flip the completion flag.
//   - Serve score, frame breakdown and summary reads from ledger snapshots.
//
// Concurrency:
//   - SubmitRoll holds a per-game mutex around read → decide → append, so two
//     submissions for one game never interleave. Different games never contend.
//   - Reads use store snapshots and take no game lock.
//   - Summary calls run outside any lock; concurrent requests for the same
//     snapshot share one upstream call, which no single caller can cancel.
//   - A game's lock is dropped once it completes (or turns out not to exist).

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/robalobadob/bowling/apps/go-server/internal/apperr"
	"github.com/robalobadob/bowling/apps/go-server/internal/game"
	"github.com/robalobadob/bowling/apps/go-server/internal/store"
	"github.com/robalobadob/bowling/apps/go-server/internal/summary"
)

// Lifecycle orchestrates placement, persistence and scoring for games.
type Lifecycle struct {
	store      store.Store
	summarizer summary.Summarizer

	mu    sync.Mutex             // guards locks
	locks map[string]*sync.Mutex // per-game submission locks

	summaries singleflight.Group
}

// New constructs a Lifecycle over st. A nil summarizer disables summaries.
func New(st store.Store, sm summary.Summarizer) *Lifecycle {
	if sm == nil {
		sm = summary.Disabled{}
	}
	return &Lifecycle{store: st, summarizer: sm, locks: make(map[string]*sync.Mutex)}
}

// gameLock returns the submission lock for a game, creating it on first use.
func (l *Lifecycle) gameLock(gameID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[gameID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[gameID] = m
	}
	return m
}

// releaseLock drops a game's submission lock once no further roll can land.
// Callers still queued on m observe the completed game and return.
func (l *Lifecycle) releaseLock(gameID string, m *sync.Mutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[gameID] == m {
		delete(l.locks, gameID)
	}
}

// CreateGame starts a new open game.
func (l *Lifecycle) CreateGame(ctx context.Context, title *string) (*game.Game, error) {
	g, err := l.store.CreateGame(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	log.Info().Str("gameId", g.ID).Msg("game created")
	return g, nil
}

// ListGames returns every game, oldest first.
func (l *Lifecycle) ListGames(ctx context.Context) ([]game.Game, error) {
	games, err := l.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// Snapshot returns a game with its ordered rolls.
func (l *Lifecycle) Snapshot(ctx context.Context, gameID string) (*game.Game, []game.Roll, error) {
	g, rolls, err := l.store.Snapshot(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", gameID, err)
	}
	return g, rolls, nil
}

// SubmitRoll records a roll of pins for a game and returns the created roll.
//
// Errors: NotFound, AlreadyCompleted, Validation (pins or frame total),
// InternalInconsistency (placement could not resolve a roll number).
func (l *Lifecycle) SubmitRoll(ctx context.Context, gameID string, pins int) (*game.Roll, error) {
	lock := l.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	g, rolls, err := l.Snapshot(ctx, gameID)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			l.releaseLock(gameID, lock)
		}
		return nil, err
	}
	if g.Completed {
		l.releaseLock(gameID, lock)
		return nil, game.ErrAlreadyCompleted
	}
	if !game.ValidPins(pins) {
		return nil, game.ErrInvalidPins
	}

	placement, err := game.PlaceRoll(rolls, pins)
	if err != nil {
		if game.IsInconsistency(err) {
			log.Error().Err(err).Str("gameId", gameID).Int("rolls", len(rolls)).Int("pins", pins).
				Msg("placement inconsistency")
		}
		return nil, err
	}

	roll, err := l.store.AppendRoll(ctx, game.Roll{
		GameID:     gameID,
		Frame:      placement.Frame,
		RollNumber: placement.RollNumber,
		Pins:       pins,
	}, placement.EndsGame())
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("append roll: %w", err)
	}

	if placement.EndsGame() {
		l.releaseLock(gameID, lock)
	}

	ev := log.Debug().Str("gameId", gameID).Int("frame", roll.Frame).Int("roll", roll.RollNumber).Int("pins", pins)
	if placement.EndsGame() {
		ev = log.Info().Str("gameId", gameID).Int("score", game.Score(append(rolls, *roll)))
	}
	ev.Bool("completed", placement.EndsGame()).Msg("roll recorded")
	return roll, nil
}

// Score returns the score so far for a game.
func (l *Lifecycle) Score(ctx context.Context, gameID string) (int, error) {
	_, rolls, err := l.Snapshot(ctx, gameID)
	if err != nil {
		return 0, err
	}
	return game.Score(rolls), nil
}

// Frames returns the per-frame score breakdown for a game.
func (l *Lifecycle) Frames(ctx context.Context, gameID string) ([]game.FrameScore, error) {
	_, rolls, err := l.Snapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.ScoreFrames(rolls), nil
}

// Summary asks the summarizer to describe the game's current snapshot.
// Failures are reported as SummaryUnavailable and never change game state.
func (l *Lifecycle) Summary(ctx context.Context, gameID string) (string, error) {
	g, rolls, err := l.Snapshot(ctx, gameID)
	if err != nil {
		return "", err
	}

	// The shared call outlives any one caller; each caller waits on its own ctx.
	key := fmt.Sprintf("%s|%d|%t", gameID, len(rolls), g.Completed)
	ch := l.summaries.DoChan(key, func() (any, error) {
		return l.summarizer.Summarize(context.WithoutCancel(ctx), g.ID, rolls, g.Completed)
	})

	var v any
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("summary failed")
		if apperr.CodeOf(err) != apperr.CodeSummaryUnavailable {
			err = apperr.Wrap(apperr.CodeSummaryUnavailable, summary.MsgUnavailable, err)
		}
		return "", err
	}
	return v.(string), nil
}

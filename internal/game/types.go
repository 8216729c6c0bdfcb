// apps/go-server/internal/game/types.go
//
// Core type definitions for the bowling engines.
// Defines:
//   - Game: one game's header (completion flag is monotonic false → true).
//   - Roll: one immutable ledger entry.
//   - Placement: where the next roll lands and whether it ends the game.

package game

import "time"

const (
	// Frames is the number of frames in a game.
	Frames = 10
	// MaxPins is the number of pins standing at the start of a frame.
	MaxPins = 10
)

// Game holds the header of a single bowling game. Its rolls live in the ledger.
type Game struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     *string   `json:"title"`     // optional
	Completed bool      `json:"completed"` // read-only to clients
}

// Roll is one entry in a game's ledger. Rolls are never edited or removed.
type Roll struct {
	ID         string    `json:"id"`
	GameID     string    `json:"game"`
	Frame      int       `json:"frame"`       // 1..10
	RollNumber int       `json:"roll_number"` // 1..3, only frame 10 reaches 3
	Pins       int       `json:"knocked_down_pins"`
	CreatedAt  time.Time `json:"created_at"`
}

// Placement is the decision PlaceRoll makes for a newly submitted roll.
type Placement struct {
	Frame      int
	RollNumber int
	// GameComplete is set when the roll is the third roll of frame 10.
	GameComplete bool
	// OpenTenth is set when the roll is the second roll of frame 10 and
	// the frame is open, so no third roll is legal.
	OpenTenth bool
}

// EndsGame reports whether recording this placement finishes the game.
func (p Placement) EndsGame() bool { return p.GameComplete || p.OpenTenth }

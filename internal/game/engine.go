// apps/go-server/internal/game/engine.go
//
// Frame placement engine for a single bowling game.
// Responsibilities:
//   - Decide which (frame, roll-within-frame) a newly submitted roll occupies.
//   - Validate pin counts and per-frame totals.
//   - Signal when the roll finishes the game.
//
// Notes:
//   - PlaceRoll is a pure function of the ledger snapshot. The target frame is
//     re-derived from the full history on every call; there is no cursor state.
//   - A game has at most 21 rolls, so the O(n) walk is fine.
package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/robalobadob/bowling/apps/go-server/internal/apperr"
)

// Client-facing messages for the placement and submission failures.
const (
	MsgPinsRequired    = "knocked_down_pins is required"
	MsgInvalidPins     = "Invalid knocked_down_pins value. It must be an integer between 0 and 10."
	MsgFrameTotal      = "Total knocked down pins for the frame cannot exceed 10"
	MsgRollUnresolved  = "Could not determine roll number"
	MsgGameNotFound    = "Game not found"
	MsgAlreadyComplete = "Game is already completed"
)

var (
	// ErrGameNotFound is returned when a game id does not exist.
	ErrGameNotFound = apperr.New(apperr.CodeNotFound, MsgGameNotFound)
	// ErrAlreadyCompleted is returned for rolls submitted to a finished game.
	ErrAlreadyCompleted = apperr.New(apperr.CodeAlreadyCompleted, MsgAlreadyComplete)
	// ErrPinsRequired is returned when a submission carries no pin count.
	ErrPinsRequired = apperr.New(apperr.CodeValidation, MsgPinsRequired)
	// ErrInvalidPins is returned for pin counts outside [0,10].
	ErrInvalidPins = apperr.New(apperr.CodeValidation, MsgInvalidPins)
	// ErrFrameTotal is returned when a frame's rolls would knock down more than 10 pins.
	ErrFrameTotal = apperr.New(apperr.CodeValidation, MsgFrameTotal)
)

// inconsistent reports a ledger state the lifecycle should have prevented.
func inconsistent(format string, args ...any) error {
	return apperr.Wrap(apperr.CodeInternalInconsistency, MsgRollUnresolved, fmt.Errorf(format, args...))
}

// ValidPins reports whether pins is a legal single-roll pin count.
func ValidPins(pins int) bool { return pins >= 0 && pins <= MaxPins }

// PlaceRoll decides where a roll of pins lands given the game's prior rolls.
//
// Frames 1..9 are resolved by a strike or by two rolls; the first unresolved
// frame is the target. Once frames 1..9 are resolved the target is frame 10,
// which takes a third roll only after a strike or spare in its first two.
//
// Callers must not invoke PlaceRoll for a completed game.
func PlaceRoll(prior []Roll, pins int) (Placement, error) {
	if !ValidPins(pins) {
		return Placement{}, ErrInvalidPins
	}
	frames, err := groupByFrame(prior)
	if err != nil {
		return Placement{}, err
	}

	target := Frames
	for f := 1; f < Frames; f++ {
		if !resolved(frames[f]) {
			target = f
			break
		}
	}
	// Rolls recorded past the target would mean a gap in the ledger.
	for f := target + 1; f <= Frames; f++ {
		if len(frames[f]) > 0 {
			return Placement{}, inconsistent("frame %d unresolved but frame %d has rolls", target, f)
		}
	}

	if target < Frames {
		return placeOpenFrame(target, frames[target], pins)
	}
	return placeTenth(frames[Frames], pins)
}

// placeOpenFrame handles frames 1..9.
func placeOpenFrame(frame int, rolls []int, pins int) (Placement, error) {
	switch len(rolls) {
	case 0:
		return Placement{Frame: frame, RollNumber: 1}, nil
	case 1:
		if rolls[0]+pins > MaxPins {
			return Placement{}, ErrFrameTotal
		}
		return Placement{Frame: frame, RollNumber: 2}, nil
	}
	return Placement{}, inconsistent("frame %d already resolved", frame)
}

// placeTenth handles frame 10 and its bonus rolls.
func placeTenth(rolls []int, pins int) (Placement, error) {
	switch len(rolls) {
	case 0:
		return Placement{Frame: Frames, RollNumber: 1}, nil
	case 1:
		first := rolls[0]
		if first == MaxPins {
			return Placement{Frame: Frames, RollNumber: 2}, nil
		}
		if first+pins > MaxPins {
			return Placement{}, ErrFrameTotal
		}
		return Placement{Frame: Frames, RollNumber: 2, OpenTenth: first+pins < MaxPins}, nil
	case 2:
		a, b := rolls[0], rolls[1]
		switch {
		case a == MaxPins:
			// After a strike the pins are reset; a non-strike second roll
			// leaves only the remaining pins for the third.
			if b < MaxPins && b+pins > MaxPins {
				return Placement{}, ErrFrameTotal
			}
			return Placement{Frame: Frames, RollNumber: 3, GameComplete: true}, nil
		case a+b == MaxPins:
			return Placement{Frame: Frames, RollNumber: 3, GameComplete: true}, nil
		}
		return Placement{}, inconsistent("frame %d already resolved", Frames)
	}
	return Placement{}, inconsistent("frame %d already holds %d rolls", Frames, len(rolls))
}

// resolved reports whether a frame in 1..9 needs no further rolls.
func resolved(rolls []int) bool {
	return len(rolls) >= 2 || (len(rolls) == 1 && rolls[0] == MaxPins)
}

// groupByFrame buckets pin counts by frame (index 1..10), each bucket ordered
// by roll-within-frame.
func groupByFrame(rolls []Roll) ([Frames + 1][]int, error) {
	var out [Frames + 1][]int
	sorted := SortRolls(rolls)
	for _, r := range sorted {
		if r.Frame < 1 || r.Frame > Frames {
			return out, inconsistent("roll %s has frame %d", r.ID, r.Frame)
		}
		out[r.Frame] = append(out[r.Frame], r.Pins)
	}
	return out, nil
}

// SortRolls returns a copy of rolls ordered by (frame, roll-within-frame).
func SortRolls(rolls []Roll) []Roll {
	out := slices.Clone(rolls)
	slices.SortStableFunc(out, func(a, b Roll) int {
		if a.Frame != b.Frame {
			return a.Frame - b.Frame
		}
		return a.RollNumber - b.RollNumber
	})
	return out
}

// IsInconsistency reports whether err signals an impossible ledger state.
func IsInconsistency(err error) bool {
	return errors.Is(err, &apperr.Error{Code: apperr.CodeInternalInconsistency})
}

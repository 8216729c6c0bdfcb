// apps/go-server/internal/game/score.go
//
// Scoring engine: standard ten-pin rules with strike/spare bonus carry-forward.
//
// Score is "score so far": bonus rolls that have not been thrown yet count as 0,
// so an in-progress game right after a strike is understated until the bonus
// rolls land. A completed game's score is final (max 300).

package game

// FrameScore is one frame's contribution in a score breakdown.
type FrameScore struct {
	Frame      int   `json:"frame"`
	Rolls      []int `json:"rolls"`      // pins of the rolls thrown in this frame
	Score      int   `json:"score"`      // this frame's points so far
	Cumulative int   `json:"cumulative"` // running total through this frame
	Pending    bool  `json:"pending"`    // rolls or bonus rolls still to come
}

// Score computes the score so far for a game's rolls. It never fails and is
// safe on an empty or partial ledger.
func Score(rolls []Roll) int {
	frames := ScoreFrames(rolls)
	if len(frames) == 0 {
		return 0
	}
	return frames[len(frames)-1].Cumulative
}

// ScoreFrames walks the rolls frame by frame and reports each started frame's
// points. The last Cumulative equals Score.
func ScoreFrames(rolls []Roll) []FrameScore {
	pins := flatten(rolls)
	out := make([]FrameScore, 0, Frames)

	total, i := 0, 0
	for frame := 1; frame <= Frames && i < len(pins); frame++ {
		fs := FrameScore{Frame: frame}
		step := 2
		switch {
		case pins[i] == MaxPins:
			fs.Score = MaxPins + at(pins, i+1) + at(pins, i+2)
			fs.Pending = i+2 >= len(pins)
			step = 1
		case i+1 < len(pins) && pins[i]+pins[i+1] == MaxPins:
			fs.Score = MaxPins + at(pins, i+2)
			fs.Pending = i+2 >= len(pins)
		default:
			fs.Score = pins[i] + at(pins, i+1)
			fs.Pending = i+1 >= len(pins)
		}

		end := min(i+step, len(pins))
		if frame == Frames {
			end = len(pins)
		}
		fs.Rolls = append([]int(nil), pins[i:end]...)

		total += fs.Score
		fs.Cumulative = total
		out = append(out, fs)
		i += step
	}
	return out
}

// flatten orders rolls by (frame, roll-within-frame) and returns their pins.
func flatten(rolls []Roll) []int {
	sorted := SortRolls(rolls)
	out := make([]int, len(sorted))
	for i, r := range sorted {
		out[i] = r.Pins
	}
	return out
}

// at returns pins[i], or 0 when the roll has not been thrown yet.
func at(pins []int, i int) int {
	if i < len(pins) {
		return pins[i]
	}
	return 0
}

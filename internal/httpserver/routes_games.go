// apps/go-server/internal/httpserver/routes_games.go
//
// HTTP routes for games, mounted under /games:
//   - GET  /games                → list games
//   - POST /games                → create a game ({"title"} optional)
//   - GET  /games/{id}           → game with its ordered rolls
//   - GET  /games/{id}/rolls     → ordered rolls
//   - POST /games/{id}/rolls     → submit a roll ({"knocked_down_pins": int})
//   - GET  /games/{id}/score     → {"score": int}
//   - GET  /games/{id}/frames    → per-frame breakdown
//   - GET  /games/{id}/summary   → {"summary": string} from the language model
//
// Roll submission checks run in a fixed order: game lookup, completion,
// presence of the pin count, then its value. The lifecycle re-checks
// completion under the game's lock.

package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/robalobadob/bowling/apps/go-server/internal/apperr"
	"github.com/robalobadob/bowling/apps/go-server/internal/game"
)

const (
	maxBodyBytes   = 64 << 10
	maxTitleLength = 255
)

var (
	errMalformedBody = apperr.New(apperr.CodeValidation, "Malformed JSON body")
	errTitleTooLong  = apperr.New(apperr.CodeValidation, "Ensure title has no more than 255 characters.")
)

// mountGames registers all /games routes.
func (s *Server) mountGames() {
	s.r.Route("/games", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.opts.RequestTimeout))
			r.Get("/", s.handleListGames)
			r.Post("/", s.handleCreateGame)
			r.Get("/{gameID}", s.handleGetGame)
			r.Get("/{gameID}/rolls", s.handleListRolls)
			r.Post("/{gameID}/rolls", s.handleSubmitRoll)
			r.Get("/{gameID}/score", s.handleScore)
			r.Get("/{gameID}/frames", s.handleFrames)
		})
		r.With(chimw.Timeout(s.opts.SummaryTimeout+s.opts.RequestTimeout)).
			Get("/{gameID}/summary", s.handleSummary)
	})
}

// decodeBody reads an optional JSON object body into a raw field map.
// An empty body yields an empty map.
func decodeBody(r *http.Request) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errMalformedBody
	}
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, errMalformedBody
	}
	return fields, nil
}

// isNull reports whether a raw field is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) == 0 || string(v) == "null"
}

// parsePins extracts knocked_down_pins. Only JSON integer literals in [0,10]
// are accepted; strings, floats and booleans are rejected.
func parsePins(fields map[string]json.RawMessage) (int, error) {
	raw, ok := fields["knocked_down_pins"]
	if !ok || isNull(raw) {
		return 0, game.ErrPinsRequired
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil || !game.ValidPins(n) {
		return 0, game.ErrInvalidPins
	}
	return n, nil
}

// parseTitle extracts the optional title.
func parseTitle(fields map[string]json.RawMessage) (*string, error) {
	raw, ok := fields["title"]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var title string
	if err := json.Unmarshal(raw, &title); err != nil {
		return nil, apperr.New(apperr.CodeValidation, "Not a valid string.")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, errTitleTooLong
	}
	return &title, nil
}

// gameDetail is a game with its ledger.
type gameDetail struct {
	game.Game
	Rolls []game.Roll `json:"rolls"`
}

// frameBreakdown is returned by /games/{id}/frames.
type frameBreakdown struct {
	Score  int               `json:"score"`
	Frames []game.FrameScore `json:"frames"`
}

func nonNilRolls(rolls []game.Roll) []game.Roll {
	if rolls == nil {
		return []game.Roll{}
	}
	return rolls
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.games.ListGames(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	title, err := parseTitle(fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.games.CreateGame(r.Context(), title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, rolls, err := s.games.Snapshot(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameDetail{Game: *g, Rolls: nonNilRolls(rolls)})
}

func (s *Server) handleListRolls(w http.ResponseWriter, r *http.Request) {
	_, rolls, err := s.games.Snapshot(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilRolls(rolls))
}

// handleSubmitRoll records one roll and returns it with 201.
func (s *Server) handleSubmitRoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	fields, bodyErr := decodeBody(r)

	g, _, err := s.games.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if g.Completed {
		writeError(w, r, game.ErrAlreadyCompleted)
		return
	}
	if bodyErr != nil {
		writeError(w, r, bodyErr)
		return
	}
	pins, err := parsePins(fields)
	if err != nil {
		writeError(w, r, err)
		return
	}

	roll, err := s.games.SubmitRoll(r.Context(), id, pins)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, roll)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.games.Score(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"score": score})
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	frames, err := s.games.Frames(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	score := 0
	if len(frames) > 0 {
		score = frames[len(frames)-1].Cumulative
	}
	writeJSON(w, http.StatusOK, frameBreakdown{Score: score, Frames: frames})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	text, err := s.games.Summary(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": text})
}

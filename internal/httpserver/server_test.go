package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/bowling/apps/go-server/internal/game"
	"github.com/robalobadob/bowling/apps/go-server/internal/lifecycle"
	"github.com/robalobadob/bowling/apps/go-server/internal/store"
)

type stubSummarizer struct {
	text  string
	err   error
	delay time.Duration
}

func (s stubSummarizer) Summarize(ctx context.Context, _ string, _ []game.Roll, _ bool) (string, error) {
	select {
	case <-time.After(s.delay):
		return s.text, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newTestServer(t *testing.T, sm stubSummarizer) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, sm, Options{})
}

func newTestServerWith(t *testing.T, sm stubSummarizer, opts Options) *httptest.Server {
	t.Helper()
	srv := New(lifecycle.New(store.NewMemoryStore(), sm), opts)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	status, raw := doRaw(t, ts, method, path, body)
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return status, out
}

func doRaw(t *testing.T, ts *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("%s %s: read body: %v", method, path, err)
	}
	return res.StatusCode, raw
}

func createGame(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	status, body := do(t, ts, http.MethodPost, "/games", "")
	if status != http.StatusCreated {
		t.Fatalf("create game: status %d body %v", status, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("create game: missing id in %v", body)
	}
	return id
}

func roll(t *testing.T, ts *httptest.Server, id string, pins int) {
	t.Helper()
	status, body := do(t, ts, http.MethodPost, "/games/"+id+"/rolls", `{"knocked_down_pins":`+itoa(pins)+`}`)
	if status != http.StatusCreated {
		t.Fatalf("roll %d: status %d body %v", pins, status, body)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHealthAndIndex(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	if status, body := do(t, ts, http.MethodGet, "/health", ""); status != http.StatusOK || body["ok"] != true {
		t.Fatalf("health: %d %v", status, body)
	}
	if status, body := do(t, ts, http.MethodGet, "/", ""); status != http.StatusOK || body["service"] != "bowling-go" {
		t.Fatalf("index: %d %v", status, body)
	}
	if status, body := do(t, ts, http.MethodGet, "/nope", ""); status != http.StatusNotFound || body["error"] != "not_found" {
		t.Fatalf("unknown path: %d %v", status, body)
	}
}

func TestCreateAndListGames(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})

	status, body := do(t, ts, http.MethodPost, "/games/", `{"title":"league night"}`)
	if status != http.StatusCreated {
		t.Fatalf("status %d body %v", status, body)
	}
	if body["title"] != "league night" || body["completed"] != false || body["created_at"] == nil {
		t.Fatalf("unexpected game %v", body)
	}
	createGame(t, ts)

	status, raw := doRaw(t, ts, http.MethodGet, "/games", "")
	if status != http.StatusOK {
		t.Fatalf("list status %d", status)
	}
	var games []game.Game
	if err := json.Unmarshal(raw, &games); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(games) != 2 || games[0].Title == nil || *games[0].Title != "league night" || games[1].Title != nil {
		t.Fatalf("unexpected list %s", raw)
	}
}

func TestCreateGameRejectsLongTitle(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	status, body := do(t, ts, http.MethodPost, "/games", `{"title":"`+strings.Repeat("x", 256)+`"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %v", status, body)
	}
}

func TestSubmitRoll(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	id := createGame(t, ts)

	status, body := do(t, ts, http.MethodPost, "/games/"+id+"/rolls/", `{"knocked_down_pins":7}`)
	if status != http.StatusCreated {
		t.Fatalf("status %d body %v", status, body)
	}
	if body["game"] != id || body["frame"] != 1.0 || body["roll_number"] != 1.0 || body["knocked_down_pins"] != 7.0 {
		t.Fatalf("unexpected roll %v", body)
	}
	if body["id"] == nil || body["created_at"] == nil {
		t.Fatalf("roll missing id or created_at: %v", body)
	}
}

func TestSubmitRollErrors(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	id := createGame(t, ts)
	roll(t, ts, id, 6)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		msg    string
	}{
		{"unknown game", "/games/missing/rolls", `{"knocked_down_pins":3}`, http.StatusNotFound, game.MsgGameNotFound},
		{"missing pins", "/games/" + id + "/rolls", `{}`, http.StatusBadRequest, game.MsgPinsRequired},
		{"empty body", "/games/" + id + "/rolls", ``, http.StatusBadRequest, game.MsgPinsRequired},
		{"null pins", "/games/" + id + "/rolls", `{"knocked_down_pins":null}`, http.StatusBadRequest, game.MsgPinsRequired},
		{"too many", "/games/" + id + "/rolls", `{"knocked_down_pins":15}`, http.StatusBadRequest, game.MsgInvalidPins},
		{"negative", "/games/" + id + "/rolls", `{"knocked_down_pins":-1}`, http.StatusBadRequest, game.MsgInvalidPins},
		{"string", "/games/" + id + "/rolls", `{"knocked_down_pins":"5"}`, http.StatusBadRequest, game.MsgInvalidPins},
		{"float", "/games/" + id + "/rolls", `{"knocked_down_pins":5.5}`, http.StatusBadRequest, game.MsgInvalidPins},
		{"frame total", "/games/" + id + "/rolls", `{"knocked_down_pins":5}`, http.StatusBadRequest, game.MsgFrameTotal},
		{"malformed", "/games/" + id + "/rolls", `{"knocked_down_pins":`, http.StatusBadRequest, "Malformed JSON body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, ts, http.MethodPost, tc.path, tc.body)
			if status != tc.status || body["error"] != tc.msg {
				t.Fatalf("got %d %v, want %d %q", status, body, tc.status, tc.msg)
			}
		})
	}

	// None of the rejected submissions were recorded.
	status, raw := doRaw(t, ts, http.MethodGet, "/games/"+id+"/rolls", "")
	var rolls []game.Roll
	if err := json.Unmarshal(raw, &rolls); err != nil || status != http.StatusOK || len(rolls) != 1 {
		t.Fatalf("expected one recorded roll, got %d %s", status, raw)
	}
}

func TestCompletedGameRejectsRolls(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	id := createGame(t, ts)
	for i := 0; i < 20; i++ {
		roll(t, ts, id, 1)
	}

	_, g := do(t, ts, http.MethodGet, "/games/"+id, "")
	if g["completed"] != true {
		t.Fatalf("expected completed game, got %v", g)
	}

	// Completion is reported before pin validation.
	for _, body := range []string{`{"knocked_down_pins":3}`, `{}`, `{"knocked_down_pins":99}`} {
		status, res := do(t, ts, http.MethodPost, "/games/"+id+"/rolls", body)
		if status != http.StatusBadRequest || res["error"] != game.MsgAlreadyComplete {
			t.Fatalf("body %s: got %d %v", body, status, res)
		}
	}
}

func TestGameDetailAndRolls(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	id := createGame(t, ts)

	_, g := do(t, ts, http.MethodGet, "/games/"+id, "")
	if rolls, ok := g["rolls"].([]any); !ok || len(rolls) != 0 {
		t.Fatalf("expected empty rolls array, got %v", g["rolls"])
	}

	roll(t, ts, id, 10)
	roll(t, ts, id, 3)
	_, g = do(t, ts, http.MethodGet, "/games/"+id+"/", "")
	rolls, _ := g["rolls"].([]any)
	if len(rolls) != 2 {
		t.Fatalf("expected two rolls, got %v", g["rolls"])
	}
	second := rolls[1].(map[string]any)
	if second["frame"] != 2.0 || second["roll_number"] != 1.0 {
		t.Fatalf("strike must close frame 1, got %v", second)
	}

	if status, body := do(t, ts, http.MethodGet, "/games/missing", ""); status != http.StatusNotFound || body["error"] != game.MsgGameNotFound {
		t.Fatalf("missing game: %d %v", status, body)
	}
}

func TestScoreAndFrames(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	id := createGame(t, ts)

	if _, body := do(t, ts, http.MethodGet, "/games/"+id+"/score", ""); body["score"] != 0.0 {
		t.Fatalf("empty game score %v", body)
	}

	roll(t, ts, id, 3)
	roll(t, ts, id, 5)
	status, body := do(t, ts, http.MethodGet, "/games/"+id+"/score/", "")
	if status != http.StatusOK || body["score"] != 8.0 {
		t.Fatalf("score: %d %v", status, body)
	}

	roll(t, ts, id, 10)
	roll(t, ts, id, 4)
	_, body = do(t, ts, http.MethodGet, "/games/"+id+"/frames", "")
	frames, _ := body["frames"].([]any)
	if len(frames) != 3 {
		t.Fatalf("expected three frames, got %v", body)
	}
	strike := frames[1].(map[string]any)
	if strike["pending"] != true {
		t.Fatalf("strike awaiting bonus must be pending, got %v", strike)
	}
	if body["score"] != 26.0 {
		t.Fatalf("expected score 26, got %v", body["score"])
	}

	if status, body := do(t, ts, http.MethodGet, "/games/missing/score", ""); status != http.StatusNotFound {
		t.Fatalf("missing game score: %d %v", status, body)
	}
}

func TestPerfectGame(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	id := createGame(t, ts)
	for i := 0; i < 12; i++ {
		roll(t, ts, id, 10)
	}
	if _, body := do(t, ts, http.MethodGet, "/games/"+id+"/score", ""); body["score"] != 300.0 {
		t.Fatalf("expected 300, got %v", body)
	}
	if status, _ := do(t, ts, http.MethodPost, "/games/"+id+"/rolls", `{"knocked_down_pins":0}`); status != http.StatusBadRequest {
		t.Fatalf("expected rejection after completion, got %d", status)
	}
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{text: "A steady start."})
	id := createGame(t, ts)
	roll(t, ts, id, 4)

	status, body := do(t, ts, http.MethodGet, "/games/"+id+"/summary", "")
	if status != http.StatusOK || body["summary"] != "A steady start." {
		t.Fatalf("summary: %d %v", status, body)
	}
	if status, body := do(t, ts, http.MethodGet, "/games/missing/summary", ""); status != http.StatusNotFound {
		t.Fatalf("missing game summary: %d %v", status, body)
	}
}

func TestSummaryFailureLeavesGameUsable(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{err: errors.New("upstream down")})
	id := createGame(t, ts)
	roll(t, ts, id, 4)

	status, body := do(t, ts, http.MethodGet, "/games/"+id+"/summary", "")
	if status != http.StatusBadGateway || body["error"] != "Summary unavailable" {
		t.Fatalf("summary failure: %d %v", status, body)
	}
	roll(t, ts, id, 5)
	if _, body := do(t, ts, http.MethodGet, "/games/"+id+"/score", ""); body["score"] != 9.0 {
		t.Fatalf("expected score 9 after failed summary, got %v", body)
	}
}

func TestSummaryTimeoutAnsweredOnce(t *testing.T) {
	ts := newTestServerWith(t, stubSummarizer{text: "late", delay: 500 * time.Millisecond}, Options{
		RequestTimeout: 20 * time.Millisecond,
		SummaryTimeout: 20 * time.Millisecond,
	})
	id := createGame(t, ts)

	status, raw := doRaw(t, ts, http.MethodGet, "/games/"+id+"/summary", "")
	if status != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 from the timeout middleware, got %d %s", status, raw)
	}
	if strings.Contains(string(raw), "Summary unavailable") {
		t.Fatalf("handler must not write after the deadline, got %s", raw)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, stubSummarizer{})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/games", nil)
	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent || res.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight: %d %v", res.StatusCode, res.Header)
	}
}

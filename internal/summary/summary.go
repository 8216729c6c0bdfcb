// apps/go-server/internal/summary/summary.go
//
// Natural-language game summaries via an external language model.
// Responsibilities:
//   - Summarizer interface the lifecycle depends on (configured once at startup).
//   - Prompt construction from a game's id, ordered rolls and completion flag.
//   - OpenAI chat-completions client with an explicit per-call timeout.
//
// Any failure surfaces as apperr.CodeSummaryUnavailable; nothing here touches
// game or ledger state.

package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/bowling/apps/go-server/assets"
	"github.com/robalobadob/bowling/apps/go-server/internal/apperr"
	"github.com/robalobadob/bowling/apps/go-server/internal/game"
)

// MsgUnavailable is the client-facing message for any summary failure.
const MsgUnavailable = "Summary unavailable"

// Summarizer produces a summary for one game snapshot.
type Summarizer interface {
	Summarize(ctx context.Context, gameID string, rolls []game.Roll, completed bool) (string, error)
}

// unavailable wraps cause as a summary failure.
func unavailable(cause error) error {
	return apperr.Wrap(apperr.CodeSummaryUnavailable, MsgUnavailable, cause)
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) Summarize(context.Context, string, []game.Roll, bool) (string, error) {
	return "", unavailable(errors.New("summary provider is not configured"))
}

// BuildPrompt renders the summary prompt for a game snapshot.
// Rolls are listed in (frame, roll-within-frame) order.
func BuildPrompt(gameID string, rolls []game.Roll, completed bool) (string, error) {
	tmpl, err := assets.SummaryPrompt()
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	var lines strings.Builder
	for _, r := range game.SortRolls(rolls) {
		fmt.Fprintf(&lines, "Frame %d, Roll %d: %d pins knocked down.\n", r.Frame, r.RollNumber, r.Pins)
	}
	status := "Game In Progress"
	if completed {
		status = "Game Completed"
	}
	out := strings.NewReplacer(
		"{{game_id}}", gameID,
		"{{total_rolls}}", strconv.Itoa(len(rolls)),
		"{{rolls}}", lines.String(),
		"{{status}}", status,
	).Replace(tmpl)
	return strings.TrimRight(out, "\n"), nil
}

// OpenAIConfig configures the chat-completions client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // e.g. https://api.openai.com/v1
	Temperature float64
	Timeout     time.Duration
}

// OpenAI calls the chat-completions endpoint.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI builds a client. A zero Timeout falls back to 30s.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAI{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Summarize sends the rendered prompt and returns the first choice's text.
func (o *OpenAI) Summarize(ctx context.Context, gameID string, rolls []game.Roll, completed bool) (string, error) {
	prompt, err := BuildPrompt(gameID, rolls, completed)
	if err != nil {
		return "", unavailable(err)
	}
	payload, err := json.Marshal(chatRequest{
		Model:       o.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", unavailable(fmt.Errorf("build request: %w", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", unavailable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(o.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", unavailable(fmt.Errorf("reach provider: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", unavailable(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", unavailable(fmt.Errorf("provider returned %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", unavailable(fmt.Errorf("parse response: %w", err))
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", unavailable(fmt.Errorf("provider error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", unavailable(errors.New("provider returned no choices"))
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

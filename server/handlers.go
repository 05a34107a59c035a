package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gaufrelabs/gaufromatic/credits"
	"github.com/gaufrelabs/gaufromatic/telemetry"
)

// Completer produces a chat-style completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Handlers bundles the dependencies the HTTP endpoints need.
type Handlers struct {
	Ledger    *credits.Ledger
	Completer Completer
	Hub       *Hub
	PublicDir string
}

// NewHandlers initializes the handlers with their dependencies.
func NewHandlers(ledger *credits.Ledger, completer Completer, publicDir string) *Handlers {
	return &Handlers{
		Ledger:    ledger,
		Completer: completer,
		Hub:       NewHub(),
		PublicDir: publicDir,
	}
}

// HandleRoot answers the bare root path so uptime checks get a 200.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("gaufromatic"))
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleCompletion serves GET /gpt/{text}: it runs the prompt through the
// model and returns the raw answer as plain text. Meant for manual poking,
// not for the overlay, so the reply is not run through the emote pipeline.
func (h *Handlers) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/gpt/")
	prompt, err := url.PathUnescape(raw)
	if err != nil {
		prompt = raw
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		http.Error(w, "missing prompt", http.StatusBadRequest)
		return
	}

	answer, err := h.Completer.Complete(r.Context(), prompt)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("manual completion failed", slog.Any("err", err))
		http.Error(w, "completion failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(answer))
}

// HandleCreditsTop serves GET /credits/top?limit=N as a JSON leaderboard.
func (h *Handlers) HandleCreditsTop(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Ledger.Top(limit)); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("encode leaderboard", slog.Any("err", err))
	}
}

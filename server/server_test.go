package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gaufrelabs/gaufromatic/credits"
)

type stubCompleter struct {
	answer string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func newTestHandlers(t *testing.T, completer Completer) *Handlers {
	t.Helper()
	ledger, err := credits.Open(filepath.Join(t.TempDir(), "credits.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return NewHandlers(ledger, completer, "")
}

func TestHealthzOK(t *testing.T) {
	h := newTestHandlers(t, &stubCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	NewMux(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
}

func TestRootAndNotFound(t *testing.T) {
	h := newTestHandlers(t, &stubCompleter{})
	mux := NewMux(h)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("root: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path: expected 404, got %d", rr.Code)
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	h := newTestHandlers(t, &stubCompleter{})
	mux := NewMux(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Fatalf("expected provided corr id echoed, got %q", got)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("expected a generated corr id")
	}
}

func TestCompletionEndpoint(t *testing.T) {
	completer := &stubCompleter{answer: "il est tard"}
	h := newTestHandlers(t, completer)
	mux := NewMux(h)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gpt/quelle%20heure", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if completer.prompt != "quelle heure" {
		t.Fatalf("expected unescaped prompt, got %q", completer.prompt)
	}
	if rr.Body.String() != "il est tard" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestCompletionEndpointErrors(t *testing.T) {
	h := newTestHandlers(t, &stubCompleter{err: errors.New("quota")})
	mux := NewMux(h)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gpt/", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty prompt: expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gpt/salut", nil))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("completer error: expected 502, got %d", rr.Code)
	}
}

func TestCreditsTopEndpoint(t *testing.T) {
	h := newTestHandlers(t, &stubCompleter{})
	h.Ledger.Set("alice", 500)
	h.Ledger.Set("bob", 50)
	mux := NewMux(h)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/credits/top?limit=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got []credits.Account
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Username != "alice" || got[0].Balance != 500 {
		t.Fatalf("unexpected leaderboard %+v", got)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/credits/top?limit=zero", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", rr.Code)
	}
}

func TestHubBroadcast(t *testing.T) {
	h := newTestHandlers(t, &stubCompleter{})
	srv := httptest.NewServer(NewMux(h))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Registration happens in the handler goroutine after the handshake.
	for i := 0; i < 200 && h.Hub.ClientCount() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if h.Hub.ClientCount() == 0 {
		t.Fatal("client never registered")
	}

	h.Hub.NotifyFileChanged("file.mp3")

	var event struct {
		Event string `json:"event"`
		File  string `json:"file"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Event != "file_changed" || event.File != "file.mp3" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestStartAndShutdown(t *testing.T) {
	h := newTestHandlers(t, &stubCompleter{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run server in background on random port by using :0
	done := make(chan error, 1)
	go func() { done <- Start(ctx, h, ":0") }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

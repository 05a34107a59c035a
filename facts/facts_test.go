package facts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaufrelabs/gaufromatic/cooldown"
	"github.com/gaufrelabs/gaufromatic/telemetry"
)

func init() { telemetry.Init() }

type fakeCompleter struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

type fakeSayer struct {
	messages []string
}

func (f *fakeSayer) Say(_, text string) { f.messages = append(f.messages, text) }

type fakeLive struct {
	live bool
	err  error
}

func (f *fakeLive) IsLive(context.Context, string) (bool, error) { return f.live, f.err }

func newFactServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "` + text + `"}`))
	}))
}

func newBroadcaster(server *httptest.Server, completer *fakeCompleter, say *fakeSayer, live *fakeLive) *Broadcaster {
	return &Broadcaster{
		FactURL:    server.URL,
		HTTPClient: server.Client(),
		Completer:  completer,
		Chat:       say,
		Live:       live,
		LiveLogin:  "gaufregentille",
		Cooldown:   cooldown.NewStore(time.Hour),
	}
}

func TestBroadcastLiveChannel(t *testing.T) {
	server := newFactServer(t, "Bees sleep.")
	defer server.Close()
	completer := &fakeCompleter{reply: "Les abeilles dorment."}
	say := &fakeSayer{}
	b := newBroadcaster(server, completer, say, &fakeLive{live: true})

	if err := b.Broadcast(context.Background(), "#gaufregentille", false); err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}
	if len(say.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(say.messages))
	}
	if !strings.HasPrefix(say.messages[0], "🦫 Useless fact : ") {
		t.Errorf("message = %q, want emoji marker prefix", say.messages[0])
	}
	if !strings.Contains(say.messages[0], "Les abeilles dorment.") {
		t.Errorf("message = %q, want translated fact", say.messages[0])
	}
	if !strings.Contains(completer.prompt, "Bees sleep.") {
		t.Errorf("translation prompt = %q, want raw fact embedded", completer.prompt)
	}
}

func TestBroadcastOfflineSkipsWithoutCooldownTouch(t *testing.T) {
	server := newFactServer(t, "x")
	defer server.Close()
	say := &fakeSayer{}
	live := &fakeLive{live: false}
	b := newBroadcaster(server, &fakeCompleter{reply: "y"}, say, live)

	if err := b.Broadcast(context.Background(), "#c", false); err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}
	if len(say.messages) != 0 {
		t.Fatal("offline broadcast must not post")
	}
	// Going live must succeed immediately: the skip did not burn the cooldown.
	live.live = true
	if err := b.Broadcast(context.Background(), "#c", false); err != nil {
		t.Fatal(err)
	}
	if len(say.messages) != 1 {
		t.Error("broadcast after going live should post")
	}
}

func TestBroadcastForceBypassesLiveGateOnly(t *testing.T) {
	server := newFactServer(t, "x")
	defer server.Close()
	say := &fakeSayer{}
	b := newBroadcaster(server, &fakeCompleter{reply: "y"}, say, &fakeLive{live: false})

	// force: offline channel still gets the fact.
	if err := b.Broadcast(context.Background(), "#c", true); err != nil {
		t.Fatalf("forced Broadcast() error: %v", err)
	}
	if len(say.messages) != 1 {
		t.Fatal("forced broadcast should post while offline")
	}
	// force does not bypass the cooldown.
	if err := b.Broadcast(context.Background(), "#c", true); err != nil {
		t.Fatal(err)
	}
	if len(say.messages) != 1 {
		t.Error("second forced broadcast within cooldown must be skipped")
	}
}

func TestBroadcastCompletionErrorSilentToChat(t *testing.T) {
	server := newFactServer(t, "x")
	defer server.Close()
	say := &fakeSayer{}
	b := newBroadcaster(server, &fakeCompleter{err: errors.New("api down")}, say, &fakeLive{live: true})

	if err := b.Broadcast(context.Background(), "#c", false); err == nil {
		t.Fatal("expected error to surface to the operator")
	}
	if len(say.messages) != 0 {
		t.Error("no chat message may be sent when translation fails")
	}
}

func TestBroadcastFactAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()
	say := &fakeSayer{}
	b := newBroadcaster(server, &fakeCompleter{reply: "y"}, say, &fakeLive{live: true})

	if err := b.Broadcast(context.Background(), "#c", false); err == nil {
		t.Fatal("expected error on fact API failure")
	}
	if len(say.messages) != 0 {
		t.Error("no chat message may be sent when the fact fetch fails")
	}
}

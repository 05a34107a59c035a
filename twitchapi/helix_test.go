package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newFakeTwitch serves both the token endpoint and the streams endpoint.
func newFakeTwitch(t *testing.T, live bool, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			tokenCalls.Add(1)
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse token form: %v", err)
			}
			if got := r.Form.Get("grant_type"); got != "client_credentials" {
				t.Errorf("grant_type = %q", got)
			}
			if got := r.Form.Get("client_id"); got != "test-client-id" {
				t.Errorf("client_id = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "app-token",
				"expires_in":   3600,
				"token_type":   "bearer",
			})
		case "/streams":
			if got := r.Header.Get("Authorization"); got != "Bearer app-token" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("Client-Id"); got != "test-client-id" {
				t.Errorf("Client-Id = %q", got)
			}
			if got := r.URL.Query().Get("user_login"); got != "gaufregentille" {
				t.Errorf("user_login = %q", got)
			}
			data := []map[string]string{}
			if live {
				data = append(data, map[string]string{
					"title":      "Live Now",
					"started_at": "2025-06-01T14:30:00Z",
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(server *httptest.Server) *HelixClient {
	return &HelixClient{
		TokenSource: &TokenSource{
			ClientID:     "test-client-id",
			ClientSecret: "test-secret",
			TokenURL:     server.URL + "/oauth2/token",
			HTTPClient:   server.Client(),
		},
		ClientID:   "test-client-id",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	}
}

func TestIsLiveOnline(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newFakeTwitch(t, true, &tokenCalls)
	defer server.Close()

	hc := newTestClient(server)
	live, err := hc.IsLive(context.Background(), "gaufregentille")
	if err != nil {
		t.Fatalf("IsLive() error: %v", err)
	}
	if !live {
		t.Error("IsLive() = false, want true")
	}
}

func TestIsLiveOffline(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newFakeTwitch(t, false, &tokenCalls)
	defer server.Close()

	hc := newTestClient(server)
	live, err := hc.IsLive(context.Background(), "gaufregentille")
	if err != nil {
		t.Fatalf("IsLive() error: %v", err)
	}
	if live {
		t.Error("IsLive() = true, want false")
	}
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newFakeTwitch(t, true, &tokenCalls)
	defer server.Close()

	hc := newTestClient(server)
	for i := 0; i < 3; i++ {
		if _, err := hc.GetStreams(context.Background(), "gaufregentille"); err != nil {
			t.Fatalf("GetStreams() error: %v", err)
		}
	}
	if got := tokenCalls.Load(); got != 1 {
		t.Errorf("token endpoint hit %d times, want 1 (cached)", got)
	}
}

func TestGetStreamsEmptyLogin(t *testing.T) {
	hc := &HelixClient{TokenSource: &TokenSource{}}
	if _, err := hc.GetStreams(context.Background(), ""); err == nil {
		t.Error("expected error for empty login")
	}
}

func TestGetStreamsServerError(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenSrv := newFakeTwitch(t, true, &tokenCalls)
	defer tokenSrv.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	hc := newTestClient(tokenSrv)
	hc.BaseURL = bad.URL
	if _, err := hc.GetStreams(context.Background(), "gaufregentille"); err == nil {
		t.Error("expected error on 500 response")
	}
}

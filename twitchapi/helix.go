// Package twitchapi contains minimal helpers to query Twitch Helix for a
// channel's live status, using an app access token obtained through the
// client-credentials flow.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultHelixURL is the Helix API base.
const DefaultHelixURL = "https://api.twitch.tv/helix"

// HelixClient provides the single query the bot needs: stream status.
type HelixClient struct {
	TokenSource *TokenSource
	ClientID    string
	BaseURL     string       // defaults to DefaultHelixURL
	HTTPClient  *http.Client // defaults to http.DefaultClient
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return DefaultHelixURL
}

// StreamMeta describes a live stream returned by GetStreams.
type StreamMeta struct {
	Title     string
	StartedAt time.Time
}

// GetStreams returns the live streams for a user login. An offline channel
// yields an empty slice, not an error.
func (hc *HelixClient) GetStreams(ctx context.Context, userLogin string) ([]StreamMeta, error) {
	if userLogin == "" {
		return nil, fmt.Errorf("user login empty")
	}
	tok, err := hc.TokenSource.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("app token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+"/streams", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("user_login", userLogin)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("helix streams request failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data []struct {
			Title     string    `json:"title"`
			StartedAt time.Time `json:"started_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	out := make([]StreamMeta, 0, len(body.Data))
	for _, s := range body.Data {
		out = append(out, StreamMeta{Title: s.Title, StartedAt: s.StartedAt})
	}
	return out, nil
}

// IsLive reports whether the channel currently has a live stream.
func (hc *HelixClient) IsLive(ctx context.Context, userLogin string) (bool, error) {
	streams, err := hc.GetStreams(ctx, userLogin)
	if err != nil {
		return false, err
	}
	return len(streams) > 0, nil
}

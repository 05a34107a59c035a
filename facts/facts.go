// Package facts implements the useless-fact broadcaster: a rate-limited
// background job that fetches a random fact, has the completion adapter
// translate it to French, and posts it to chat. Automatic firing is gated on
// the channel being live; the !fact command bypasses the live gate but not
// the cooldown.
package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gaufrelabs/gaufromatic/cooldown"
	"github.com/gaufrelabs/gaufromatic/telemetry"
)

// DefaultFactURL serves `{"text": "..."}` facts.
const DefaultFactURL = "https://uselessfacts.jsph.pl/api/v2/facts/random?language=en"

// cooldownKey is the single shared key: the timer and the !fact command race
// against the same window.
const cooldownKey = "fact"

// marker prefixes every broadcast fact in chat.
const marker = "🦫 Useless fact : "

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Sayer interface {
	Say(channel, text string)
}

type LiveChecker interface {
	IsLive(ctx context.Context, userLogin string) (bool, error)
}

type Broadcaster struct {
	FactURL    string       // defaults to DefaultFactURL
	HTTPClient *http.Client // defaults to http.DefaultClient

	Completer Completer
	Chat      Sayer
	Live      LiveChecker
	// LiveLogin is the login whose live status gates automatic broadcasts.
	LiveLogin string
	Cooldown  *cooldown.Store
}

// Start polls every minute and broadcasts to channel when the cooldown and
// live gate allow it. Runs until the context is canceled.
func (b *Broadcaster) Start(ctx context.Context, channel string) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	slog.Info("fact broadcaster started", slog.String("channel", channel), slog.Duration("cooldown", b.Cooldown.Window()))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Broadcast(ctx, channel, false); err != nil {
				slog.Error("fact broadcast failed", slog.Any("err", err))
			}
		}
	}
}

// Broadcast fetches, translates, and posts one fact. force marks a manual
// !fact invocation: the live gate is skipped, the cooldown is not. Gated
// invocations return nil without posting and without touching the cooldown.
func (b *Broadcaster) Broadcast(ctx context.Context, channel string, force bool) error {
	if rem := b.Cooldown.Remaining(cooldownKey); rem > 0 {
		slog.Debug("fact cooldown active", slog.Duration("remaining", rem))
		return nil
	}
	if !force {
		live, err := b.Live.IsLive(ctx, b.LiveLogin)
		if err != nil {
			return fmt.Errorf("live check: %w", err)
		}
		if !live {
			slog.Debug("fact skipped: channel offline", slog.String("login", b.LiveLogin))
			return nil
		}
	}
	if ok, _ := b.Cooldown.Begin(cooldownKey); !ok {
		// Lost the race against a concurrent invocation.
		return nil
	}

	fact, err := b.fetchFact(ctx)
	if err != nil {
		return fmt.Errorf("fetch fact: %w", err)
	}
	translated, err := b.Completer.Complete(ctx, "Traduis ce fait inutile en français sans rien ajouter : "+fact)
	if err != nil {
		return fmt.Errorf("translate fact: %w", err)
	}
	b.Chat.Say(channel, marker+translated)
	telemetry.FactsSent.Inc()
	return nil
}

func (b *Broadcaster) fetchFact(ctx context.Context) (string, error) {
	url := b.FactURL
	if url == "" {
		url = DefaultFactURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	hc := b.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("fact request failed: %s: %s", resp.Status, string(body))
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Text == "" {
		return "", fmt.Errorf("empty fact in response")
	}
	return out.Text, nil
}

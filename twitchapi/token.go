package twitchapi

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenURL is the Twitch OAuth client-credentials endpoint.
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// TokenSource fetches and caches a Twitch app access (client credentials)
// token via x/oauth2. The token is fetched lazily on first use and refreshed
// automatically when it expires.
// NOTE: app tokens cannot be used for IRC chat; chat needs a user OAuth token.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	TokenURL     string       // defaults to DefaultTokenURL
	HTTPClient   *http.Client // defaults to http.DefaultClient

	once sync.Once
	ts   oauth2.TokenSource
}

func (s *TokenSource) source() oauth2.TokenSource {
	s.once.Do(func() {
		tokenURL := s.TokenURL
		if tokenURL == "" {
			tokenURL = DefaultTokenURL
		}
		cc := &clientcredentials.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			TokenURL:     tokenURL,
			// Twitch wants credentials in the POST body, not basic auth.
			AuthStyle: oauth2.AuthStyleInParams,
		}
		ctx := context.Background()
		if s.HTTPClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
		}
		s.ts = cc.TokenSource(ctx)
	})
	return s.ts
}

// Get returns a valid (fresh or cached) app access token.
func (s *TokenSource) Get(ctx context.Context) (string, error) {
	tok, err := s.source().Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

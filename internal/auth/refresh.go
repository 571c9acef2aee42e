package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// expiryBuffer refreshes tokens a little before they actually expire
const expiryBuffer = 60 * time.Second

// TokenSource refreshes access tokens from a stored refresh token.
// Strava rotates refresh tokens, so every new one is handed to onRotate.
type TokenSource struct {
	ctx      context.Context
	config   *oauth2.Config
	onRotate func(refreshToken string) error

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenSource starts from a bare refresh token; the first Token call refreshes
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, refreshToken string, onRotate func(string) error) *TokenSource {
	return &TokenSource{
		ctx:      ctx,
		config:   cfg,
		onRotate: onRotate,
		token:    &oauth2.Token{RefreshToken: refreshToken},
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token.AccessToken != "" && time.Until(ts.token.Expiry) > expiryBuffer {
		return ts.token, nil
	}

	expired := *ts.token
	expired.AccessToken = ""
	newToken, err := ts.config.TokenSource(ts.ctx, &expired).Token()
	if err != nil {
		return nil, err
	}

	if newToken.RefreshToken != "" && newToken.RefreshToken != ts.token.RefreshToken && ts.onRotate != nil {
		if err := ts.onRotate(newToken.RefreshToken); err != nil {
			return nil, err
		}
	}

	ts.token = newToken
	return newToken, nil
}

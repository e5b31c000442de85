package api

import (
	"context"
	"errors"
	"net/http"
)

// ExchangeCode trades an OAuth authorization code for an access token and
// stores the resulting session. The stored session is visible to the next
// request as soon as this returns.
func (s AuthService) ExchangeCode(ctx context.Context, code, redirectURI string) (*AuthResponse, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}
	body := map[string]string{"code": code}
	if redirectURI != "" {
		body["redirect_uri"] = redirectURI
	}

	var result AuthResponse
	if err := s.do(ctx, http.MethodPost, "/api/auth/callback", body, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errors.New("unexpected API response format (missing access_token)")
	}

	user := result.User
	if err := s.Session.Set(result.AccessToken, &user); err != nil {
		// The in-memory session is set; only persistence failed.
		s.Logger.Warn().Err(err).Msg("could not persist session")
	}
	return &result, nil
}

// Me returns the profile for the current token.
func (s AuthService) Me(ctx context.Context) (*UserProfile, error) {
	var result UserProfile
	if err := s.do(ctx, http.MethodGet, "/api/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout forgets the local session. The backend is stateless, so nothing is
// sent over the wire.
func (s AuthService) Logout() bool {
	return s.Session.Clear()
}

// Package session holds the bearer token and cached user profile for the
// current process and persists them in the OS keyring.
//
// A Store never fails a read: when the keyring is unavailable every read
// reports an absent session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
)

const (
	tokenKey = "costlens.token"
	userKey  = "costlens.user"

	envToken = "COSTLENS_TOKEN"
)

// ErrNotAuthenticated is returned by guards that require a token.
var ErrNotAuthenticated = errors.New("not authenticated - run 'costlens auth login' first")

// UserProfile is the authenticated user as returned by the auth exchange.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Store is the process-wide session. Create one with New and share it.
type Store struct {
	mu      sync.Mutex
	loaded  bool
	ring    keyring.Keyring
	token   string
	user    *UserProfile
	onClear func()
	logger  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report storage problems.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New returns a Store. Nothing is read from the keyring until first use.
func New(opts ...Option) *Store {
	s := &Store{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnClear registers the hook run after a non-empty session is cleared.
// The CLI uses it to send the user back to the login entry point.
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = fn
}

// load populates the in-memory view once. Callers hold s.mu.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true

	if token := strings.TrimSpace(os.Getenv(envToken)); token != "" {
		s.token = token
	}

	ring, err := openKeyring(keyringConfig())
	if err != nil {
		s.logger.Debug().Err(err).Msg("session storage unavailable")
		return
	}
	s.ring = ring

	if s.token == "" {
		if item, err := ring.Get(tokenKey); err == nil {
			s.token = string(item.Data)
		} else if !errors.Is(err, keyring.ErrKeyNotFound) {
			s.logger.Debug().Err(err).Msg("failed to read stored token")
		}
	}

	if item, err := ring.Get(userKey); err == nil {
		var user UserProfile
		if err := json.Unmarshal(item.Data, &user); err == nil {
			s.user = &user
		} else {
			s.logger.Debug().Err(err).Msg("ignoring unreadable stored profile")
		}
	}
}

// Token returns the bearer token, or "" when there is none.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.token
}

// User returns a copy of the cached profile, or nil.
func (s *Store) User() *UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Set replaces the session. The in-memory view changes immediately even if
// persisting fails; the returned error only reports the persistence problem.
func (s *Store) Set(token string, user *UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}

	if s.ring == nil {
		return fmt.Errorf("session not persisted: keyring unavailable")
	}
	return s.persist(token, user)
}

func (s *Store) persist(token string, user *UserProfile) error {
	var previous *keyring.Item
	if item, err := s.ring.Get(userKey); err == nil {
		previous = &item
	}

	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user profile: %w", err)
		}
		if err := s.ring.Set(keyring.Item{Key: userKey, Data: data}); err != nil {
			return fmt.Errorf("failed to save user profile: %w", err)
		}
	} else if err := s.ring.Remove(userKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove user profile: %w", err)
	}

	if err := s.ring.Set(keyring.Item{Key: tokenKey, Data: []byte(token)}); err != nil {
		if previous != nil {
			_ = s.ring.Set(*previous)
		} else {
			_ = s.ring.Remove(userKey)
		}
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear removes the token and profile and runs the OnClear hook. It reports
// whether anything was cleared; clearing an empty session is a no-op.
func (s *Store) Clear() bool {
	s.mu.Lock()
	s.load()
	if s.token == "" && s.user == nil {
		s.mu.Unlock()
		return false
	}
	hadToken := s.token != ""
	s.token = ""
	s.user = nil
	if s.ring != nil {
		for _, key := range []string{tokenKey, userKey} {
			if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
				s.logger.Debug().Err(err).Str("key", key).Msg("failed to remove session entry")
			}
		}
	}
	hook := s.onClear
	s.mu.Unlock()

	if hadToken && hook != nil {
		hook()
	}
	return true
}

// Package auth owns the client-side session: token + user persistence, the
// seller gate, and the single external-auth completion path.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/api"
	"storefront/internal/core"
	apperrors "storefront/pkg/errors"
)

const stateFile = "session.json"

// persistedState is what survives between runs.
type persistedState struct {
	Token string     `json:"auth_token"`
	User  *core.User `json:"user"`
}

// Session is the authenticated client session. It implements
// api.Credentials, so a 401 anywhere clears it.
type Session struct {
	mu     sync.Mutex
	path   string
	token  string
	user   *core.User
	client *api.Client
	logger core.ILogger
}

// NewSession loads any persisted session from stateDir. A malformed state
// file yields a logged-out session, never an error.
func NewSession(stateDir string, logger core.ILogger) *Session {
	s := &Session{
		path:   filepath.Join(stateDir, stateFile),
		logger: logger.WithField("component", "auth_session"),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("Persisted session unreadable, starting logged out", "error", err)
		return s
	}
	s.token = state.Token
	s.user = state.User
	return s
}

// UseClient wires the API client the session authenticates through. Must be
// called before any of the auth operations.
func (s *Session) UseClient(c *api.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

// Token implements api.Credentials.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// HandleUnauthorized implements api.Credentials: the backend rejected our
// token, so drop it and force a fresh login.
func (s *Session) HandleUnauthorized() {
	s.logger.Warn("Authorization expired, clearing session")
	s.Clear()
}

// Current returns the logged-in user, or nil.
func (s *Session) Current() *core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Login authenticates with email/password and persists the session.
func (s *Session) Login(ctx context.Context, email, password string) (*core.User, error) {
	res, err := s.api().Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.store(res)
	return res.User, nil
}

// LoginSeller is the seller-only entry point: non-seller accounts are
// rejected and no token is stored.
func (s *Session) LoginSeller(ctx context.Context, email, password string) (*core.User, error) {
	res, err := s.api().Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !res.User.IsSeller() {
		return nil, apperrors.ErrNotSeller
	}
	s.store(res)
	return res.User, nil
}

// Register creates an account and persists the resulting session.
func (s *Session) Register(ctx context.Context, req api.RegisterRequest) (*core.User, error) {
	res, err := s.api().Register(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store(res)
	return res.User, nil
}

// CompleteExternalAuth finishes an OAuth redirect: exchanges the callback
// code for a token and persists the session. Every external login entry
// point funnels through here, parameterized only by the redirect target.
func (s *Session) CompleteExternalAuth(ctx context.Context, code, redirectURI string) (*core.User, error) {
	res, err := s.api().CompleteExternalAuth(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	s.store(res)
	return res.User, nil
}

// Me refreshes the cached user from the backend.
func (s *Session) Me(ctx context.Context) (*core.User, error) {
	user, err := s.api().Me(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.persist()
	return user, nil
}

// Logout clears the session.
func (s *Session) Logout() {
	s.Clear()
}

// Clear drops token and user and removes the persisted state.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	path := s.path
	s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove persisted session", "error", err)
	}
}

func (s *Session) api() *api.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		panic("auth: session used before UseClient")
	}
	return s.client
}

func (s *Session) store(res *api.AuthResult) {
	s.mu.Lock()
	s.token = res.Token
	s.user = res.User
	s.mu.Unlock()
	s.persist()
}

func (s *Session) persist() {
	s.mu.Lock()
	state := persistedState{Token: s.token, User: s.user}
	path := s.path
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		s.logger.Warn("Failed to create state dir", "error", err)
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Warn("Failed to serialize session", "error", err)
		return
	}
	tmp := fmt.Sprintf("%s.tmp", path)
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Warn("Failed to persist session", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Warn("Failed to persist session", "error", err)
	}
}

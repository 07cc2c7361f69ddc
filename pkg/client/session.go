package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"agriconnect/internal/models"
)

// ErrAuthFailure is returned by Session.Login and Session.Register when the
// server rejects the attempt.
var ErrAuthFailure = errors.New("authentication failed")

// Messages stored in State.Error.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgRegistrationFailed = "Registration failed"
)

// State is a snapshot of the session. Error is empty when there is none.
type State struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *models.User `json:"user"`
	Loading         bool         `json:"loading"`
	Error           string       `json:"error,omitempty"`
}

// Session tracks who is signed in. It starts unauthenticated and loading
// until Restore has checked the stored token. User is set exactly when
// IsAuthenticated is true.
type Session struct {
	client *Client
	tokens TokenStore

	mu       sync.Mutex
	state    State
	restored bool
}

// NewSession creates a session that persists its token in the client's store.
func NewSession(c *Client) *Session {
	return &Session{
		client: c,
		tokens: c.Tokens(),
		state:  State{Loading: true},
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Restore signs back in with a stored token. It only runs once; later calls
// return the current state.
func (s *Session) Restore(ctx context.Context) State {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return s.State()
	}
	s.restored = true
	s.mu.Unlock()

	token, err := s.tokens.Load()
	if err != nil {
		log.Printf("Failed to read stored token: %v", err)
	}
	if token == "" {
		s.set(State{})
		return s.State()
	}

	user, err := s.client.Me(ctx)
	if err != nil {
		log.Printf("Stored token rejected: %v", err)
		s.dropToken()
		s.set(State{})
		return s.State()
	}
	s.set(State{IsAuthenticated: true, User: user})
	return s.State()
}

// Login authenticates with email and password. On failure the session is
// signed out with State.Error set and the returned error wraps ErrAuthFailure.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.setLoading()
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.dropToken()
		s.set(State{Error: MsgInvalidCredentials})
		return fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	return s.signIn(res)
}

// Register creates an account and signs it in.
func (s *Session) Register(ctx context.Context, in RegisterInput) error {
	s.setLoading()
	res, err := s.client.Register(ctx, in)
	if err != nil {
		msg := MsgRegistrationFailed
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" && apiErr.Status < 500 {
			msg = apiErr.Detail
		}
		s.dropToken()
		s.set(State{Error: msg})
		return fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	return s.signIn(res)
}

func (s *Session) signIn(res *AuthResult) error {
	if err := s.tokens.Save(res.Token); err != nil {
		s.set(State{Error: MsgInvalidCredentials})
		return fmt.Errorf("failed to store token: %w", err)
	}
	s.set(State{IsAuthenticated: true, User: res.User})
	return nil
}

// Logout signs out and forgets the stored token.
func (s *Session) Logout() {
	s.dropToken()
	s.set(State{})
}

// ClearError drops the error message and leaves everything else as is.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = ""
}

func (s *Session) set(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) setLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
}

func (s *Session) dropToken() {
	if err := s.tokens.Clear(); err != nil {
		log.Printf("Failed to clear stored token: %v", err)
	}
}

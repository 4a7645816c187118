// Package session persists the auth token and the logged-in user between
// CLI invocations, under the same keys the web client used in local storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sudo-init-do/efresco/internal/user"
)

const (
	TokenKey = "efresco_token"
	UserKey  = "efresco_user"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Store is a JSON file holding the token and user. An empty path keeps
// everything in memory.
type Store struct {
	mu    sync.RWMutex
	path  string
	token string
	user  *user.User
}

type fileState struct {
	Token string     `json:"efresco_token,omitempty"`
	User  *user.User `json:"efresco_user,omitempty"`
}

// Open loads the session file at path. A missing file is an empty session.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	s.token, s.user = st.Token, st.User
	return s, nil
}

func NewMemory() *Store { return &Store{} }

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return s.save()
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) SetUser(u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
	} else {
		cp := *u
		s.user = &cp
	}
	return s.save()
}

// Save stores token and user together.
func (s *Store) Save(token string, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if u != nil {
		cp := *u
		s.user = &cp
	}
	return s.save()
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// UserID is the logged-in user's id or ErrNotLoggedIn.
func (s *Store) UserID() (int64, error) {
	u := s.User()
	if u == nil || u.ID == 0 {
		return 0, ErrNotLoggedIn
	}
	return u.ID, nil
}

func (s *Store) HasRole(role string) bool { return s.User().HasRole(role) }

func (s *Store) IsAdmin() bool { return s.User().IsAdmin() }

// Expired reports whether the stored token's exp claim is in the past. The
// signature is not checked; the backend does that. Tokens that are not JWTs
// (like the offline demo token) never expire here.
func (s *Store) Expired(now time.Time) bool {
	tok := s.Token()
	if tok == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(fileState{Token: s.token, User: s.user}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

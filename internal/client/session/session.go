// Package session tracks who the CLI is acting as: a guest or an
// authenticated user, plus the tokens that prove it.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const FileName = "session.yaml"

var ErrNoSession = errors.New("not logged in")

// Identity selects which local mirror and remote partition are in use.
// The zero value is the guest.
type Identity struct {
	Email string
}

func Guest() Identity { return Identity{} }

func (i Identity) IsGuest() bool { return i.Email == "" }

func (i Identity) String() string {
	if i.IsGuest() {
		return "guest"
	}
	return i.Email
}

// Session is the persisted login state.
type Session struct {
	Email        string    `yaml:"email"`
	UserID       string    `yaml:"user_id,omitempty"`
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	SavedAt      time.Time `yaml:"saved_at"`
}

func (s *Session) Identity() Identity {
	if s == nil {
		return Guest()
	}
	return Identity{Email: s.Email}
}

// AccessExpired reports whether the access token's exp claim has passed.
// Tokens without a readable exp are treated as expired.
func (s *Session) AccessExpired(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !now.Before(exp.Time)
}

// Store reads and writes the session file.
type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, path: filepath.Join(dir, FileName)}
}

func (s *Store) Load() (*Session, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.Email == "" || sess.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

func (s *Store) Save(sess *Session) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return afero.WriteFile(s.fs, s.path, data, 0o600)
}

func (s *Store) Clear() error {
	err := s.fs.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Tokens hands out the bearer token for the identity it was built for.
type Tokens struct {
	sess *Session
}

func NewTokens(sess *Session) *Tokens {
	return &Tokens{sess: sess}
}

func (t *Tokens) Token(id Identity) (string, error) {
	if t == nil || t.sess == nil || id.IsGuest() || id.Email != t.sess.Email {
		return "", ErrNoSession
	}
	return t.sess.AccessToken, nil
}

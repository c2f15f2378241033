// Package remote is the HTTP client for the careerforge server: the
// authoritative roadmap store, the streak endpoints and authentication.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/streak"
)

var (
	ErrNetwork  = errors.New("remote unreachable")
	ErrAuth     = errors.New("not authorized")
	ErrNotFound = errors.New("not found")
)

// StatusError is returned for any other non-success response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned status %d", e.Code)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Message)
}

// Unwrap makes every unexpected status count as a network failure.
func (e *StatusError) Unwrap() error { return ErrNetwork }

// TokenSource supplies the bearer token for an identity.
type TokenSource interface {
	Token(id session.Identity) (string, error)
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
	now    func() time.Time
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRoadmaps returns every roadmap stored for id.
func (c *Client) ListRoadmaps(ctx context.Context, id session.Identity) ([]roadmap.Roadmap, error) {
	body, err := c.do(ctx, id, http.MethodGet, "/api/p/roadmaps", nil)
	if err != nil {
		return nil, err
	}
	items, err := roadmap.FromJSON(body, c.now())
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	return items, nil
}

// CreateRoadmap upserts r keyed by its id, which the server records as the
// client id.
func (c *Client) CreateRoadmap(ctx context.Context, id session.Identity, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	body, err := c.do(ctx, id, http.MethodPost, "/api/p/roadmaps", r)
	if err != nil {
		return roadmap.Roadmap{}, err
	}
	return roadmap.ObjectFromJSON(body, c.now())
}

func (c *Client) UpdateRoadmap(ctx context.Context, id session.Identity, roadmapID string, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	body, err := c.do(ctx, id, http.MethodPut, "/api/p/roadmaps/"+url.PathEscape(roadmapID), r)
	if err != nil {
		return roadmap.Roadmap{}, err
	}
	return roadmap.ObjectFromJSON(body, c.now())
}

func (c *Client) DeleteRoadmap(ctx context.Context, id session.Identity, roadmapID string) error {
	_, err := c.do(ctx, id, http.MethodDelete, "/api/p/roadmaps/"+url.PathEscape(roadmapID), nil)
	return err
}

type streakAction struct {
	Action string `json:"action"`
	Date   string `json:"date,omitempty"`
}

func (c *Client) GetStreak(ctx context.Context, id session.Identity) (streak.State, error) {
	body, err := c.do(ctx, id, http.MethodGet, "/api/p/streak", nil)
	if err != nil {
		return streak.State{}, err
	}
	return decodeStreak(body)
}

func (c *Client) TouchStreak(ctx context.Context, id session.Identity, day string) (streak.State, error) {
	body, err := c.do(ctx, id, http.MethodPost, "/api/p/streak", streakAction{Action: "touch", Date: day})
	if err != nil {
		return streak.State{}, err
	}
	return decodeStreak(body)
}

func (c *Client) ResetStreak(ctx context.Context, id session.Identity) (streak.State, error) {
	body, err := c.do(ctx, id, http.MethodPost, "/api/p/streak", streakAction{Action: "reset"})
	if err != nil {
		return streak.State{}, err
	}
	return decodeStreak(body)
}

func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	return c.auth(ctx, "/api/auth/login", dto.LoginRequest{Email: email, Password: password})
}

func (c *Client) Register(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	return c.auth(ctx, "/api/auth/register", dto.RegisterRequest{Email: email, Password: password})
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	return c.auth(ctx, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: refreshToken})
}

// Logout revokes the refresh token server-side.
func (c *Client) Logout(ctx context.Context, id session.Identity, refreshToken string) error {
	_, err := c.do(ctx, id, http.MethodPost, "/api/auth/logout", dto.LogoutRequest{RefreshToken: refreshToken})
	return err
}

// GenerateRoadmap asks the server's learning API for a phased roadmap for
// role. It needs no login.
func (c *Client) GenerateRoadmap(ctx context.Context, role string) ([]roadmap.Phase, error) {
	body, err := c.send(ctx, "", http.MethodPost, "/api/roadmap/generate", map[string]string{"role": role})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Roadmap struct {
			Phases []roadmap.Phase `json:"phases"`
		} `json:"roadmap"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode generated roadmap: %w", err)
	}
	return resp.Roadmap.Phases, nil
}

func (c *Client) auth(ctx context.Context, path string, req any) (*dto.AuthResponse, error) {
	body, err := c.send(ctx, "", http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}
	var resp dto.AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, id session.Identity, method, path string, payload any) ([]byte, error) {
	if c.tokens == nil {
		return nil, ErrAuth
	}
	token, err := c.tokens.Token(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return c.send(ctx, token, method, path, payload)
}

func (c *Client) send(ctx context.Context, token, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrAuth, errorMessage(body))
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, errorMessage(body))
	default:
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
	}
}

func decodeStreak(body []byte) (streak.State, error) {
	var st streak.State
	if err := json.Unmarshal(body, &st); err != nil {
		return streak.State{}, fmt.Errorf("decode streak: %w", err)
	}
	return st, nil
}

func errorMessage(body []byte) string {
	var e dto.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

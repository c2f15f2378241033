// Package judge runs source code against test cases on a Judge0 instance.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"golang.org/x/sync/errgroup"
)

const (
	MaxSourceChars = 80_000
	MaxTests       = 12
	MaxIOChars     = 10_000
)

var (
	ErrNotConfigured  = errors.New("judge0_not_configured")
	ErrMissingFields  = errors.New("language_id and source_code are required")
	ErrSourceTooLarge = errors.New("source_too_large")
	ErrNoTests        = errors.New("no_tests_provided")
	ErrTooManyTests   = errors.New("too_many_tests")
	ErrTestIOTooLarge = errors.New("test_io_too_large")
	ErrKeyRequired    = errors.New("JUDGE0_KEY required for RapidAPI usage")
	ErrPollTimeout    = errors.New("submission polling timed out")
	ErrNoToken        = errors.New("no token returned from Judge0")
)

type TestCase struct {
	Stdin    string `json:"stdin"`
	Expected string `json:"expected"`
}

// Request is a judged run. LanguageID is passed to Judge0 untouched and may
// be a number or a numeric string.
type Request struct {
	LanguageID any        `json:"language_id"`
	SourceCode string     `json:"source_code"`
	Tests      []TestCase `json:"tests"`
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the outcome of one test case. Failed runs carry only Error.
type Result struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	Stdout        *string         `json:"stdout,omitempty"`
	Expected      *string         `json:"expected,omitempty"`
	Time          json.RawMessage `json:"time,omitempty"`
	Memory        json.RawMessage `json:"memory,omitempty"`
	CompileOutput *string         `json:"compile_output,omitempty"`
	Stderr        *string         `json:"stderr,omitempty"`
	Status        *Status         `json:"status,omitempty"`
}

type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
}

type Response struct {
	OK      bool     `json:"ok"`
	Summary Summary  `json:"summary"`
	Results []Result `json:"results"`
}

type submission struct {
	Token          string          `json:"token"`
	Status         *Status         `json:"status"`
	Stdout         *string         `json:"stdout"`
	Stderr         *string         `json:"stderr"`
	CompileOutput  *string         `json:"compile_output"`
	Time           json.RawMessage `json:"time"`
	Memory         json.RawMessage `json:"memory"`
	ExpectedOutput *string         `json:"expected_output"`
}

type Runner struct {
	baseURL     string
	apiKey      string
	rapidHost   string
	client      *http.Client
	poll        time.Duration
	timeout     time.Duration
	concurrency int
	log         *slog.Logger
}

func NewRunner(cfg *config.Config, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	concurrency := cfg.JudgeConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		baseURL:     strings.TrimSuffix(cfg.Judge0URL, "/"),
		apiKey:      cfg.Judge0APIKey,
		rapidHost:   cfg.Judge0RapidAPIHost,
		client:      &http.Client{Timeout: 15 * time.Second},
		poll:        cfg.JudgePollInterval,
		timeout:     cfg.JudgeTimeout,
		concurrency: concurrency,
		log:         log.With("component", "judge"),
	}
}

// Validate checks a request against the submission limits.
func Validate(req Request) error {
	if missingLanguage(req.LanguageID) || req.SourceCode == "" {
		return ErrMissingFields
	}
	if len([]rune(req.SourceCode)) > MaxSourceChars {
		return ErrSourceTooLarge
	}
	if len(req.Tests) == 0 {
		return ErrNoTests
	}
	if len(req.Tests) > MaxTests {
		return ErrTooManyTests
	}
	for _, tc := range req.Tests {
		if len([]rune(tc.Stdin)) > MaxIOChars || len([]rune(tc.Expected)) > MaxIOChars {
			return ErrTestIOTooLarge
		}
	}
	return nil
}

func missingLanguage(v any) bool {
	switch id := v.(type) {
	case nil:
		return true
	case string:
		return id == ""
	case float64:
		return id == 0
	case int:
		return id == 0
	}
	return false
}

// Run judges every test case. A failing test is recorded in its result and
// never stops the others; results keep the order of req.Tests.
func (r *Runner) Run(ctx context.Context, req Request) (Response, error) {
	if r.baseURL == "" {
		return Response{}, ErrNotConfigured
	}
	if err := Validate(req); err != nil {
		return Response{}, err
	}

	results := make([]Result, len(req.Tests))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, tc := range req.Tests {
		g.Go(func() error {
			sub, err := r.runOne(ctx, req, tc)
			if err != nil {
				r.log.Warn("test run failed", "test", i, "error", err)
				results[i] = Result{Success: false, Error: err.Error()}
				return nil
			}
			results[i] = compare(sub, tc)
			return nil
		})
	}
	g.Wait()

	resp := Response{OK: true, Summary: Summary{Total: len(req.Tests)}, Results: results}
	for _, res := range results {
		if res.Success {
			resp.Summary.Passed++
		}
	}
	return resp, nil
}

func compare(sub *submission, tc TestCase) Result {
	stdout := deref(sub.Stdout)
	expected := tc.Expected
	if sub.ExpectedOutput != nil {
		expected = *sub.ExpectedOutput
	}
	return Result{
		Success:       normalizeOutput(stdout) == normalizeOutput(expected),
		Stdout:        &stdout,
		Expected:      &expected,
		Time:          sub.Time,
		Memory:        sub.Memory,
		CompileOutput: sub.CompileOutput,
		Stderr:        sub.Stderr,
		Status:        sub.Status,
	}
}

func normalizeOutput(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r", ""))
}

func (r *Runner) runOne(ctx context.Context, req Request, tc TestCase) (*submission, error) {
	headers, err := r.headers()
	if err != nil {
		return nil, err
	}
	token, err := r.submit(ctx, headers, req, tc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	for {
		sub, err := r.fetch(ctx, headers, token)
		if err == nil && sub.Status != nil && sub.Status.ID >= 3 {
			return sub, nil
		}
		if err != nil {
			r.log.Debug("poll failed, retrying", "token", token, "error", err)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrPollTimeout
			}
			return nil, ctx.Err()
		case <-time.After(r.poll):
		}
	}
}

func (r *Runner) headers() (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if r.rapidHost != "" {
		if r.apiKey == "" {
			return nil, ErrKeyRequired
		}
		h.Set("x-rapidapi-host", r.rapidHost)
		h.Set("x-rapidapi-key", r.apiKey)
	} else if r.apiKey != "" {
		h.Set("Authorization", "Bearer "+r.apiKey)
	}
	return h, nil
}

func (r *Runner) submit(ctx context.Context, headers http.Header, req Request, tc TestCase) (string, error) {
	body, err := json.Marshal(map[string]any{
		"source_code":     req.SourceCode,
		"language_id":     req.LanguageID,
		"stdin":           tc.Stdin,
		"expected_output": tc.Expected,
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/submissions?base64_encoded=false&wait=false", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header = headers.Clone()

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("Judge0 submit failed %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var sub submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if sub.Token == "" {
		return "", ErrNoToken
	}
	return sub.Token, nil
}

func (r *Runner) fetch(ctx context.Context, headers http.Header, token string) (*submission, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/submissions/"+token+"?base64_encoded=false", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header = headers.Clone()

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("poll status %d", resp.StatusCode)
	}
	var sub submission
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

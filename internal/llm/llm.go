// Package llm sends prompts to chat-completion providers, falling back from
// one configured provider to the next.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
)

var (
	ErrNotConfigured = errors.New("no AI provider configured")
	ErrEmptyResponse = errors.New("no response from AI")
)

// Prompt is one system+user exchange.
type Prompt struct {
	System      string
	User        []string
	MaxTokens   int
	Temperature float64
}

// Provider is a single chat-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

type Client struct {
	providers []Provider
	log       *slog.Logger
}

// New builds the provider chain from cfg: OpenRouter first, then Anthropic.
// Providers without an API key are skipped.
func New(cfg *config.Config, log *slog.Logger) *Client {
	var providers []Provider
	if cfg.OpenRouterAPIKey != "" {
		providers = append(providers, NewOpenRouter(cfg.OpenRouterAPIURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterReferer, cfg.AITimeout))
	}
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AITimeout))
	}
	return NewClient(log, providers...)
}

func NewClient(log *slog.Logger, providers ...Provider) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{providers: providers, log: log.With("component", "llm")}
}

// Configured reports whether at least one provider is available.
func (c *Client) Configured() bool {
	return c != nil && len(c.providers) > 0
}

// Complete returns the first non-empty answer in provider order.
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	var errs []error
	for _, provider := range c.providers {
		text, err := provider.Complete(ctx, p)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return text, nil
		}
		c.log.Warn("provider failed", "provider", provider.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

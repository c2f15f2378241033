package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content interface{} `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// OpenRouter speaks the OpenAI-compatible chat completions protocol.
type OpenRouter struct {
	url     string
	apiKey  string
	model   string
	referer string
	client  *http.Client
}

func NewOpenRouter(url, apiKey, model, referer string, timeout time.Duration) *OpenRouter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenRouter{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		referer: referer,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenRouter) Name() string { return "openrouter" }

func (o *OpenRouter) Complete(ctx context.Context, p Prompt) (string, error) {
	messages := make([]chatMessage, 0, len(p.User)+1)
	if p.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.System})
	}
	for _, u := range p.User {
		messages = append(messages, chatMessage{Role: "user", Content: u})
	}

	payload, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.referer != "" {
		req.Header.Set("HTTP-Referer", o.referer)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("AI API error: status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := completion.Choices[0]
	switch v := choice.Message.Content.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case nil:
		return strings.TrimSpace(choice.Text), nil
	default:
		contentBytes, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to extract content from AI response")
		}
		return string(contentBytes), nil
	}
}

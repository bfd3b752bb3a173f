package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/models"
)

// ErrCompletionUnavailable is returned when no completion service is configured or the breaker is open.
var ErrCompletionUnavailable = errors.New("completion service unavailable")

const (
	chatSystemPrompt = "You are the in-store assistant of a home furnishings retailer. " +
		"Answer questions about furniture, fabrics, delivery and design services briefly and politely."
	summarySystemPrompt = "Summarize the following customer conversation in at most five short sentences " +
		"so a sales consultant can follow up. Include product interests, measurements and contact preferences."
	maxCompletionBody = 1 << 20
)

// Completer produces assistant replies for the chat widget.
type Completer interface {
	Reply(ctx context.Context, turns []models.ChatTurn) (string, error)
	Summarize(ctx context.Context, turns []models.ChatTurn) (string, error)
}

// CompletionConfig points HTTPCompleter at an OpenAI-compatible chat completions endpoint.
type CompletionConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPCompleter calls the completion endpoint through a circuit breaker.
type HTTPCompleter struct {
	cfg     CompletionConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
}

func NewHTTPCompleter(cfg CompletionConfig) *HTTPCompleter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "completion",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			Logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &HTTPCompleter{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

func (c *HTTPCompleter) Reply(ctx context.Context, turns []models.ChatTurn) (string, error) {
	msgs := []completionMessage{{Role: "system", Content: chatSystemPrompt}}
	for _, t := range turns {
		msgs = append(msgs, completionMessage{Role: t.Role, Content: t.Content})
	}
	return c.complete(ctx, msgs)
}

func (c *HTTPCompleter) Summarize(ctx context.Context, turns []models.ChatTurn) (string, error) {
	var transcript strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&transcript, "%s: %s\n", t.Role, t.Content)
	}
	return c.complete(ctx, []completionMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: transcript.String()},
	})
}

func (c *HTTPCompleter) complete(ctx context.Context, msgs []completionMessage) (string, error) {
	if c.cfg.URL == "" {
		return "", ErrCompletionUnavailable
	}
	out, err := c.breaker.Execute(func() (string, error) {
		return c.post(ctx, completionRequest{Model: c.cfg.Model, Messages: msgs})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}
	return out, err
}

func (c *HTTPCompleter) post(ctx context.Context, body completionRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBody))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded completionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

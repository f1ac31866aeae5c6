// Package aibrief is the client for the external AI summarization service.
// It is an OpenRouter-style chat-completions API consumed as an opaque
// collaborator: the engine calls it optionally and tolerates it failing or
// being absent entirely.
package aibrief

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

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Config holds AI service settings supplied by the host application.
// No hardcoded model defaults: the user selects one in the host UI.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // defaults to the OpenRouter endpoint
	HTTP    *http.Client
}

// Client makes non-streaming completion requests to the AI service.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a client with the given config.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	httpClient := config.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{config: config, http: httpClient}
}

// IsConfigured checks whether the client has usable credentials.
func (c *Client) IsConfigured() bool {
	return c != nil && c.config.APIKey != "" && c.config.Model != ""
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []chatMsg `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete makes a non-streaming completion request and returns the full
// response text.
func (c *Client) Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNoCredential
	}

	messages := make([]chatMsg, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMsg{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMsg{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   4096,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("aibrief: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("aibrief: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UpstreamError{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("aibrief: failed to parse response: %w", ErrMalformedResponse)
	}
	if parsed.Error != nil {
		return "", &UpstreamError{Status: parsed.Error.Code, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("aibrief: empty completion: %w", ErrMalformedResponse)
	}

	return parsed.Choices[0].Message.Content, nil
}

// GenerateDailyBrief runs the daily-brief prompt against the AI service and
// parses the structured result.
func (c *Client) GenerateDailyBrief(ctx context.Context, dc DailyContext) (*BriefResult, error) {
	raw, err := c.Complete(ctx, BuildDailyPrompt(dc), dailySystemPrompt)
	if err != nil {
		return nil, err
	}
	return ParseBriefResponse(raw)
}

// ResolveProject asks the AI service which project a text belongs to.
// Returns the bare project name, or "" when the service answers "none".
func (c *Client) ResolveProject(ctx context.Context, text string, names []string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNoCredential
	}
	raw, err := c.Complete(ctx, BuildProjectPrompt(text, names), projectSystemPrompt)
	if err != nil {
		return "", err
	}
	return ParseProjectName(raw), nil
}

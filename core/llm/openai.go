package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gaurav-prasanna/pagegate/core"
)

const (
	// DefaultOpenAIURL is the base URL of the public OpenAI API.
	DefaultOpenAIURL = "https://api.openai.com/v1"
	// DefaultChatModel is used when a prompt names no model.
	DefaultChatModel = "gpt-4o-mini"
)

// ErrNoAPIKey is returned by Complete when no API key was configured.
var ErrNoAPIKey = errors.New("no LLM API key configured")

// OpenAIClient implements core.Completer against any OpenAI-compatible
// chat completions endpoint.
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithBaseURL points the client at a compatible server.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithDefaultModel sets the model used when a prompt names none.
func WithDefaultModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.defaultModel = model
		}
	}
}

// WithCompletionTimeout sets the HTTP timeout for one completion.
func WithCompletionTimeout(d time.Duration) OpenAIOption {
	return func(c *OpenAIClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewOpenAIClient creates a client authenticating with apiKey.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:       apiKey,
		baseURL:      DefaultOpenAIURL,
		defaultModel: DefaultChatModel,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Complete implements core.Completer.
func (c *OpenAIClient) Complete(ctx context.Context, p core.Prompt) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	model := p.Model
	if model == "" {
		model = c.defaultModel
	}

	req := chatRequest{Model: model, Temperature: p.Temperature}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"microwin/config"
	"microwin/prompts"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient handles communication with the Anthropic Messages API
type AnthropicClient struct {
	httpClient  *http.Client
	apiURL      string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewAnthropicClient creates a new Anthropic API client
func NewAnthropicClient(cfg config.Config) *AnthropicClient {
	return &AnthropicClient{
		httpClient:  &http.Client{},
		apiURL:      cfg.AnthropicAPIURL,
		apiKey:      cfg.AnthropicAPIKey,
		model:       cfg.AnthropicModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.RequestTimeout,
	}
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []TextContent `json:"content"`
}

// TextContent represents text content in a message
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CreateMessageRequest represents the request to create a message
type CreateMessageRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
}

// CreateMessageResponse represents the response from creating a message
type CreateMessageResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Role       string    `json:"role"`
	Content    []Content `json:"content"`
	Model      string    `json:"model"`
	StopReason string    `json:"stop_reason"`
	Usage      Usage     `json:"usage"`
}

// Content represents content in the response
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Complete sends the prompt as a single user turn and returns the joined text blocks
func (c *AnthropicClient) Complete(ctx context.Context, prompt prompts.Prompt) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.SendMessage(ctx, CreateMessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      prompt.System,
		Messages: []Message{{
			Role:    "user",
			Content: []TextContent{{Type: "text", Text: prompt.User}},
		}},
	})
	if err != nil {
		return "", backendErr(config.ProviderAnthropic, err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// SendMessage posts a Messages API request and decodes the response
func (c *AnthropicClient) SendMessage(ctx context.Context, request CreateMessageRequest) (*CreateMessageResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, serr.Wrap(err, "failed to marshal request")
	}

	logger.Debug("Anthropic API request", "model", request.Model, "url", c.apiURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, serr.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogErr(err, "Anthropic API request failed", "model", request.Model)
		return nil, serr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := readSuccess(resp)
	if err != nil {
		logger.LogErr(err, "Anthropic API error", "model", request.Model)
		return nil, err
	}

	var response CreateMessageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, serr.Wrap(err, "failed to parse response")
	}

	logger.Debug("Anthropic API response", "model", response.Model,
		"input_tokens", response.Usage.InputTokens, "output_tokens", response.Usage.OutputTokens)

	return &response, nil
}

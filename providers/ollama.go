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

// OllamaClient talks to a local Ollama server's /api/generate endpoint
type OllamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewOllamaClient creates a new Ollama client from cfg
func NewOllamaClient(cfg config.Config) *OllamaClient {
	return &OllamaClient{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(cfg.OllamaBaseURL, "/"),
		model:       cfg.OllamaModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.RequestTimeout,
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends a single non-streaming generate request
func (c *OllamaClient) Complete(ctx context.Context, prompt prompts.Prompt) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	requestBody, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: prompt.Combined(),
		Stream: false,
		Options: ollamaOptions{
			Temperature: c.temperature,
			NumPredict:  c.maxTokens,
		},
	})
	if err != nil {
		return "", backendErr(config.ProviderOllama, serr.Wrap(err, "failed to marshal request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(requestBody))
	if err != nil {
		return "", backendErr(config.ProviderOllama, serr.Wrap(err, "failed to create request"))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogErr(err, "Ollama API request failed", "model", c.model)
		return "", backendErr(config.ProviderOllama, serr.Wrap(err, "failed to send request"))
	}
	defer resp.Body.Close()

	body, err := readSuccess(resp)
	if err != nil {
		logger.LogErr(err, "Ollama API error", "model", c.model)
		return "", backendErr(config.ProviderOllama, err)
	}

	var response ollamaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", backendErr(config.ProviderOllama, serr.Wrap(err, "failed to parse response"))
	}

	logger.Debug("Ollama completion", "model", c.model, "elapsed", time.Since(start).String())
	return response.Response, nil
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"microwin/config"
	"microwin/prompts"
)

// GeminiClient calls the Google Generative Language generateContent endpoint
type GeminiClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewGeminiClient creates a new Gemini client from cfg
func NewGeminiClient(cfg config.Config) *GeminiClient {
	return &GeminiClient{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(cfg.GeminiBaseURL, "/"),
		apiKey:      cfg.GeminiAPIKey,
		model:       cfg.GeminiModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.RequestTimeout,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Complete sends one generateContent request and returns the first candidate's text
func (c *GeminiClient) Complete(ctx context.Context, prompt prompts.Prompt) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	requestBody, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: prompt.System}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt.User}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      c.temperature,
			MaxOutputTokens:  c.maxTokens,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return "", backendErr(config.ProviderGemini, serr.Wrap(err, "failed to marshal request"))
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", backendErr(config.ProviderGemini, serr.Wrap(err, "failed to create request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors echo the request URL, which carries the key
		sendErr := serr.New("failed to send request: " + redactKey(err.Error(), c.apiKey))
		logger.LogErr(sendErr, "Gemini API request failed", "model", c.model)
		return "", backendErr(config.ProviderGemini, sendErr)
	}
	defer resp.Body.Close()

	body, err := readSuccess(resp)
	if err != nil {
		logger.LogErr(err, "Gemini API error", "model", c.model)
		return "", backendErr(config.ProviderGemini, err)
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", backendErr(config.ProviderGemini, serr.Wrap(err, "failed to parse response"))
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", backendErr(config.ProviderGemini, serr.New("response has no candidates"))
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func redactKey(s, key string) string {
	if key == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(key), "REDACTED")
	return strings.ReplaceAll(s, key, "REDACTED")
}

package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohanthewiz/serr"

	"microwin/config"
	"microwin/prompts"
)

// Completer is a text-completion backend. It returns the model's raw
// text; it does not parse or judge it.
type Completer interface {
	Complete(ctx context.Context, prompt prompts.Prompt) (string, error)
}

// GenerationBackendError wraps every failure of a backend call:
// transport errors, non-success statuses, undecodable envelopes and timeouts
type GenerationBackendError struct {
	Provider string
	Err      error
}

func (e *GenerationBackendError) Error() string {
	return fmt.Sprintf("generation backend error (%s): %v", e.Provider, e.Err)
}

func (e *GenerationBackendError) Unwrap() error {
	return e.Err
}

func backendErr(provider string, err error) error {
	return &GenerationBackendError{Provider: provider, Err: err}
}

// New returns the Completer selected by cfg.Provider
func New(cfg config.Config) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(cfg), nil
	case config.ProviderGemini:
		return NewGeminiClient(cfg), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	}
	return nil, serr.New("unknown provider: " + cfg.Provider)
}

// withTimeout bounds a backend call unless the caller already set an earlier deadline
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// readSuccess reads the body and turns any non-2xx status into an error
func readSuccess(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serr.Wrap(err, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serr.New(fmt.Sprintf("API error: %s - %s", resp.Status, truncate(string(body), 512)))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

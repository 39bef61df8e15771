package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rohanthewiz/serr"
)

// Provider names accepted by MICROWIN_PROVIDER
const (
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Store drivers accepted by MICROWIN_DB_DRIVER
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

const (
	defaultAddress        = ":8000"
	defaultProvider       = ProviderOllama
	defaultOllamaBaseURL  = "http://localhost:11434"
	defaultOllamaModel    = "llama3.2"
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultAnthropicURL   = "https://api.anthropic.com/v1/messages"
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
	defaultMaxTokens      = 150
	defaultTemperature    = 0.7
	defaultRequestTimeout = 30 * time.Second
	defaultDBDriver       = DriverDuckDB
	defaultDBPath         = "data/microwin.db"
	defaultMaxStepSeconds = 10
	defaultStrictSeconds  = 5
)

// DefaultAbstractVerbs are banned anywhere in a step, case-insensitively.
var DefaultAbstractVerbs = []string{
	"organize", "plan", "prepare", "think", "decide",
	"consider", "figure out", "work on", "deal with",
}

// DefaultConcreteVerbs are the action verbs a step is expected to start with.
// A miss is only logged.
var DefaultConcreteVerbs = []string{
	"pick", "grab", "open", "close", "walk", "tap", "touch",
	"click", "press", "pull", "push", "take", "put", "place",
	"move", "stand", "sit", "turn", "look", "find",
}

// Config holds application configuration.
// It is built once at startup and handed to each component.
type Config struct {
	Address string

	// Generation backend
	Provider        string
	OllamaBaseURL   string
	OllamaModel     string
	GeminiAPIKey    string
	GeminiBaseURL   string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicAPIURL string
	AnthropicModel  string
	MaxTokens       int
	Temperature     float64
	RequestTimeout  time.Duration

	// Record store
	DBDriver string
	DBPath   string

	// Step policy
	MaxStepSeconds           int
	SimplificationMaxSeconds int
	AbstractVerbs            []string
	ConcreteVerbs            []string
}

// Default returns a Config populated with built-in defaults only
func Default() Config {
	return Config{
		Address:                  defaultAddress,
		Provider:                 defaultProvider,
		OllamaBaseURL:            defaultOllamaBaseURL,
		OllamaModel:              defaultOllamaModel,
		GeminiBaseURL:            defaultGeminiBaseURL,
		GeminiModel:              defaultGeminiModel,
		AnthropicAPIURL:          defaultAnthropicURL,
		AnthropicModel:           defaultAnthropicModel,
		MaxTokens:                defaultMaxTokens,
		Temperature:              defaultTemperature,
		RequestTimeout:           defaultRequestTimeout,
		DBDriver:                 defaultDBDriver,
		DBPath:                   defaultDBPath,
		MaxStepSeconds:           defaultMaxStepSeconds,
		SimplificationMaxSeconds: defaultStrictSeconds,
		AbstractVerbs:            append([]string(nil), DefaultAbstractVerbs...),
		ConcreteVerbs:            append([]string(nil), DefaultConcreteVerbs...),
	}
}

// Load builds the configuration from MICROWIN_* environment variables
// layered over the defaults. It only rejects values that cannot be parsed;
// call Validate or ValidateStore once all overrides are applied.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()

	setString(getenv, "MICROWIN_ADDRESS", &cfg.Address)
	setString(getenv, "MICROWIN_PROVIDER", &cfg.Provider)
	setString(getenv, "MICROWIN_OLLAMA_URL", &cfg.OllamaBaseURL)
	setString(getenv, "MICROWIN_OLLAMA_MODEL", &cfg.OllamaModel)
	setString(getenv, "MICROWIN_GEMINI_API_KEY", &cfg.GeminiAPIKey)
	setString(getenv, "MICROWIN_GEMINI_URL", &cfg.GeminiBaseURL)
	setString(getenv, "MICROWIN_GEMINI_MODEL", &cfg.GeminiModel)
	setString(getenv, "MICROWIN_ANTHROPIC_API_KEY", &cfg.AnthropicAPIKey)
	setString(getenv, "MICROWIN_ANTHROPIC_MODEL", &cfg.AnthropicModel)
	setString(getenv, "MICROWIN_DB_DRIVER", &cfg.DBDriver)
	setString(getenv, "MICROWIN_DB_PATH", &cfg.DBPath)

	// A message proxy replaces the Anthropic endpoint
	if proxyURL := getenv("MSG_PROXY"); proxyURL != "" {
		cfg.AnthropicAPIURL = strings.TrimRight(proxyURL, "/") + "/v1/messages"
	}

	var err error
	if cfg.MaxTokens, err = intEnv(getenv, "MICROWIN_MAX_TOKENS", cfg.MaxTokens); err != nil {
		return cfg, err
	}
	if cfg.MaxStepSeconds, err = intEnv(getenv, "MICROWIN_MAX_STEP_SECONDS", cfg.MaxStepSeconds); err != nil {
		return cfg, err
	}
	if cfg.SimplificationMaxSeconds, err = intEnv(getenv, "MICROWIN_SIMPLIFICATION_MAX_SECONDS", cfg.SimplificationMaxSeconds); err != nil {
		return cfg, err
	}

	if v := getenv("MICROWIN_TEMPERATURE"); v != "" {
		cfg.Temperature, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, serr.Wrap(err, "invalid MICROWIN_TEMPERATURE")
		}
	}

	if v := getenv("MICROWIN_REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout, err = time.ParseDuration(v)
		if err != nil {
			return cfg, serr.Wrap(err, "invalid MICROWIN_REQUEST_TIMEOUT")
		}
	}

	if v := getenv("MICROWIN_ABSTRACT_VERBS"); v != "" {
		cfg.AbstractVerbs = splitList(v)
	}
	if v := getenv("MICROWIN_CONCRETE_VERBS"); v != "" {
		cfg.ConcreteVerbs = splitList(v)
	}

	return cfg, nil
}

// ValidateStore checks only what opening the record store needs
func (c Config) ValidateStore() error {
	switch c.DBDriver {
	case DriverDuckDB, DriverSQLite:
	default:
		return serr.New("unknown database driver: " + c.DBDriver)
	}
	if c.DBPath == "" {
		return serr.New("database path must not be empty")
	}
	return nil
}

// Validate rejects configurations the pipeline cannot honor
func (c Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.MaxStepSeconds <= 0 || c.SimplificationMaxSeconds <= 0 {
		return serr.New("step ceilings must be positive")
	}
	if c.SimplificationMaxSeconds > c.MaxStepSeconds {
		return serr.New(fmt.Sprintf("simplification ceiling %ds exceeds step ceiling %ds",
			c.SimplificationMaxSeconds, c.MaxStepSeconds))
	}
	if c.RequestTimeout <= 0 {
		return serr.New("request timeout must be positive")
	}
	if c.MaxTokens <= 0 {
		return serr.New("max tokens must be positive")
	}

	switch c.Provider {
	case ProviderOllama:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return serr.New("MICROWIN_GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return serr.New("MICROWIN_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		return serr.New("unknown provider: " + c.Provider)
	}
	return nil
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		*dst = v
	}
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, serr.Wrap(err, "invalid "+key)
	}
	return n, nil
}

// splitList parses a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

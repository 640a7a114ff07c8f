package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string // "dev" or "prod"
	LogLevel string

	LLM        LLMConfig
	Suggestion SuggestionConfig
	RateLimit  RateLimitConfig
	Tracing    TracingConfig

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Entries may contain * wildcards. Empty allows any origin.
	CORSAllowedOrigins []string
}

// LLMConfig holds the gateway settings. Zero values mean "use the client
// default".
type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxAttempts   int
	BaseDelay     time.Duration
	Factor        float64
	Temperature   *float64
	MaxTokens     *int
	OverridesFile string
}

type SuggestionConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type TracingConfig struct {
	Exporter     string // "none", "stdout" or "otlp"
	OTLPEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LLM: LLMConfig{
			APIKey:        os.Getenv("OPENROUTER_API_KEY"),
			BaseURL:       os.Getenv("OPENROUTER_BASE_URL"),
			Model:         os.Getenv("OPENROUTER_MODEL"),
			Timeout:       getDuration("LLM_TIMEOUT", 0, &errs),
			MaxAttempts:   getInt("LLM_MAX_ATTEMPTS", 0, &errs),
			BaseDelay:     getDuration("LLM_BASE_DELAY", 0, &errs),
			Factor:        getFloat("LLM_BACKOFF_FACTOR", 0, &errs),
			Temperature:   getOptionalFloat("LLM_TEMPERATURE", &errs),
			MaxTokens:     getOptionalInt("LLM_MAX_TOKENS", &errs),
			OverridesFile: os.Getenv("LLM_OVERRIDES_FILE"),
		},
		Suggestion: SuggestionConfig{
			CacheSize: getInt("SUGGESTION_CACHE_SIZE", 256, &errs),
			CacheTTL:  getDuration("SUGGESTION_CACHE_TTL", 10*time.Minute, &errs),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloat("RATE_LIMIT_RPS", 5, &errs),
			Burst: getInt("RATE_LIMIT_BURST", 10, &errs),
		},
		Tracing: TracingConfig{
			Exporter:     getEnv("TRACING_EXPORTER", "none"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS"),
	}

	if len(errs) > 0 {
		return nil, errs[0]
	}

	if cfg.Env == "prod" && cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("prod: OPENROUTER_API_KEY is required")
	}

	switch cfg.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return nil, fmt.Errorf("TRACING_EXPORTER must be none, stdout or otlp, got %q", cfg.Tracing.Exporter)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, v))
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}

func getOptionalFloat(key string, errs *[]error) *float64 {
	if v, ok := os.LookupEnv(key); !ok || v == "" {
		return nil
	}
	f := getFloat(key, 0, errs)
	return &f
}

func getOptionalInt(key string, errs *[]error) *int {
	if v, ok := os.LookupEnv(key); !ok || v == "" {
		return nil
	}
	n := getInt(key, 0, errs)
	return &n
}

func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

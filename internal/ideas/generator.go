package ideas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/PauloHFS/giftideas/internal/llm"
	"github.com/PauloHFS/giftideas/internal/logging"
)

// ErrNoSuggestions is returned when the model reply holds nothing usable.
var ErrNoSuggestions = errors.New("model returned no usable suggestions")

// Gateway is the part of the llm client the generator needs.
type Gateway interface {
	ChatStructured(ctx context.Context, req llm.StructuredRequest) (*llm.StructuredResponse, error)
}

type Suggestion struct {
	Content string `json:"content"`
}

type Metadata struct {
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

type GenerateResult struct {
	Suggestions []Suggestion `json:"suggestions"`
	Metadata    Metadata     `json:"metadata"`
}

type suggestionPayload struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type GeneratorConfig struct {
	// CacheSize <= 0 disables caching.
	CacheSize int
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

type Generator struct {
	mu      sync.RWMutex
	gateway Gateway

	catalog *Catalog
	cache   *expirable.LRU[string, GenerateResult]
	logger  *slog.Logger
	now     func() time.Time
}

func NewGenerator(gateway Gateway, catalog *Catalog, cfg GeneratorConfig) *Generator {
	g := &Generator{
		gateway: gateway,
		catalog: catalog,
		logger:  cfg.Logger,
		now:     time.Now,
	}
	if g.logger == nil {
		g.logger = logging.Get()
	}
	if cfg.CacheSize > 0 {
		g.cache = expirable.NewLRU[string, GenerateResult](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return g
}

// SetGateway swaps the gateway used by subsequent generations and drops
// cached results produced by the previous one.
func (g *Generator) SetGateway(gateway Gateway) {
	g.mu.Lock()
	g.gateway = gateway
	g.mu.Unlock()

	if g.cache != nil {
		g.cache.Purge()
	}
}

func (g *Generator) currentGateway() Gateway {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gateway
}

func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Generate validates cmd and asks the gateway for gift suggestions. Invalid
// commands yield *InvalidCommandError; gateway failures are *llm.Error.
func (g *Generator) Generate(ctx context.Context, cmd GenerateCommand) (*GenerateResult, error) {
	cmd = cmd.Normalize()
	if v := cmd.Validate(g.catalog); !v.Valid {
		return nil, &InvalidCommandError{Details: v.Details()}
	}

	key := cmd.cacheKey()
	if g.cache != nil {
		if cached, ok := g.cache.Get(key); ok {
			g.logger.DebugContext(ctx, "suggestion cache hit", slog.String("key", key[:12]))
			return cloneResult(cached), nil
		}
	}

	resp, err := g.currentGateway().ChatStructured(ctx, llm.StructuredRequest{
		ChatRequest:    llm.ChatRequest{Messages: BuildPrompt(cmd, g.catalog)},
		ResponseFormat: SuggestionSchema(),
	})
	if err != nil {
		return nil, err
	}

	payload, err := llm.DecodeStructured[suggestionPayload](resp)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, MaxSuggestions)
	for _, s := range payload.Suggestions {
		content := sanitize(s.Content)
		if content == "" {
			continue
		}
		suggestions = append(suggestions, Suggestion{Content: content})
		if len(suggestions) == MaxSuggestions {
			break
		}
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w (model %s)", ErrNoSuggestions, resp.Model)
	}

	result := GenerateResult{
		Suggestions: suggestions,
		Metadata: Metadata{
			Model:       resp.Model,
			GeneratedAt: g.now().UTC(),
		},
	}

	if g.cache != nil {
		g.cache.Add(key, result)
	}

	g.logger.InfoContext(ctx, "suggestions generated",
		slog.String("model", resp.Model),
		slog.Int("count", len(suggestions)),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return cloneResult(result), nil
}

func cloneResult(r GenerateResult) *GenerateResult {
	r.Suggestions = append([]Suggestion(nil), r.Suggestions...)
	return &r
}

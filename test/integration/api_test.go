package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/PauloHFS/giftideas/internal/config"
	"github.com/PauloHFS/giftideas/internal/ideas"
	"github.com/PauloHFS/giftideas/internal/llm"
	"github.com/PauloHFS/giftideas/internal/middleware"
	"github.com/PauloHFS/giftideas/internal/web"
)

type TestServer struct {
	Gateway   *httptest.Server
	Server    *httptest.Server
	Generator *ideas.Generator
	calls     atomic.Int32
}

// setupTestServer runs the real HTTP stack and llm client against a fake
// gateway. respond is called once per gateway request with its 1-based index.
func setupTestServer(t *testing.T, respond func(w http.ResponseWriter, call int)) *TestServer {
	ts := &TestServer{}

	ts.Gateway = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		respond(w, int(ts.calls.Add(1)))
	}))
	t.Cleanup(ts.Gateway.Close)

	client, err := llm.NewClient("sk-test",
		llm.WithBaseURL(ts.Gateway.URL),
		llm.WithTimeout(2*time.Second),
		llm.WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }),
	)
	if err != nil {
		t.Fatal(err)
	}

	catalog, err := ideas.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	ts.Generator = ideas.NewGenerator(client, catalog, ideas.GeneratorConfig{CacheSize: 16, CacheTTL: time.Minute})

	handler := web.NewHandler(web.HandlerDeps{
		Generator: ts.Generator,
		Config:    &config.Config{Env: "test", Port: "8080"},
	}, middleware.NewRateLimiter(100, 100))

	ts.Server = httptest.NewServer(gzhttp.GzipHandler(handler))
	t.Cleanup(ts.Server.Close)

	return ts
}

func completion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "gen-1",
		"model":   "openai/gpt-4o-mini",
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 120, "completion_tokens": 60, "total_tokens": 180},
	})
}

func generate(t *testing.T, ts *TestServer, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.Server.URL+web.GenerateIdeas, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGenerateIdeas_EndToEnd(t *testing.T) {
	reply := `{"suggestions":[{"content":"Pottery class"},{"content":"Herb garden kit"},{"content":"Audiobook subscription"}]}`
	ts := setupTestServer(t, func(w http.ResponseWriter, call int) {
		if call == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream overloaded"}}`))
			return
		}
		completion(w, reply)
	})

	resp := generate(t, ts, `{"age":45,"interests":"cooking","occasion_id":1}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Data ideas.GenerateResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(body.Data.Suggestions))
	}
	if got := ts.calls.Load(); got != 2 {
		t.Errorf("expected one retry after the 503, got %d gateway calls", got)
	}

	// Same hints again are served from the cache.
	resp = generate(t, ts, `{"interests":" cooking ","age":45,"occasion_id":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if got := ts.calls.Load(); got != 2 {
		t.Errorf("expected cached result, got %d gateway calls", got)
	}
}

func TestGenerateIdeas_RateLimitedUpstream(t *testing.T) {
	ts := setupTestServer(t, func(w http.ResponseWriter, call int) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	resp := generate(t, ts, `{}`)

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "7" {
		t.Errorf("expected Retry-After 7, got %q", got)
	}
	if got := ts.calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestGenerateIdeas_MalformedModelOutput(t *testing.T) {
	ts := setupTestServer(t, func(w http.ResponseWriter, call int) {
		completion(w, "Here are some ideas: a book, a scarf")
	})

	resp := generate(t, ts, `{}`)

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", resp.StatusCode)
	}
	if got := ts.calls.Load(); got != 1 {
		t.Errorf("validation failures must not be retried, got %d calls", got)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	ts := setupTestServer(t, func(w http.ResponseWriter, call int) {})

	for _, path := range []string{web.Relations, web.Occasions} {
		resp, err := http.Get(ts.Server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, resp.StatusCode)
		}
		if got := resp.Header.Get("Cache-Control"); !strings.HasPrefix(got, "public") {
			t.Errorf("%s: expected public caching, got %q", path, got)
		}
	}
}

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PauloHFS/giftideas/internal/config"
	"github.com/PauloHFS/giftideas/internal/ideas"
	"github.com/PauloHFS/giftideas/internal/llm"
	"github.com/PauloHFS/giftideas/internal/logging"
	"github.com/PauloHFS/giftideas/internal/metrics"
	"github.com/PauloHFS/giftideas/internal/middleware"
)

const maxBodyBytes = 64 << 10

type HandlerDeps struct {
	Generator *ideas.Generator
	Config    *config.Config
}

// AppHandler is a handler that may return an error instead of writing one.
type AppHandler func(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error

// Handle adapts an AppHandler to http.HandlerFunc. Returned errors are logged
// and answered with a generic 500.
func Handle(deps HandlerDeps, h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(deps, w, r); err != nil {
			logging.Get().Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)

			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		}
	}
}

// NewHandler builds the full HTTP stack: routes wrapped in recovery, rate
// limiting, CORS, security headers and request logging.
func NewHandler(deps HandlerDeps, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)

	cors := middleware.DefaultCORSConfig()
	if deps.Config != nil {
		cors.AllowedOrigins = deps.Config.CORSAllowedOrigins
	}
	isProd := deps.Config != nil && deps.Config.Env == "prod"

	var handler http.Handler = middleware.SecurityHeaders(isProd)(
		middleware.CORS(cors)(
			middleware.Logger(mux),
		),
	)
	if limiter != nil {
		handler = limiter.Middleware(handler)
	}
	return middleware.Recovery(handler)
}

func RegisterRoutes(mux *http.ServeMux, deps HandlerDeps) {
	mux.Handle("GET "+Metrics, promhttp.Handler())
	mux.HandleFunc("GET "+Health, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST "+GenerateIdeas, Handle(deps, handleGenerateIdeas))
	mux.HandleFunc("GET "+Relations, Handle(deps, handleRelations))
	mux.HandleFunc("GET "+Occasions, Handle(deps, handleOccasions))
}

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type dataBody struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- Handler Implementations ---

func handleGenerateIdeas(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	logging.AddToEvent(r.Context(), slog.String("operation", "generate_ideas"))

	var cmd ideas.GenerateCommand
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		logging.AddToEvent(r.Context(), slog.String("decode_error", err.Error()))
		metrics.SuggestionsGenerated.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Validation error",
			Details: []string{"Invalid JSON payload"},
		})
		return nil
	}

	result, err := deps.Generator.Generate(r.Context(), cmd)
	if err != nil {
		return writeGenerateError(w, r, err)
	}

	metrics.SuggestionsGenerated.WithLabelValues("ok").Inc()
	logging.AddToEvent(r.Context(),
		slog.String("model", result.Metadata.Model),
		slog.Int("suggestions", len(result.Suggestions)),
	)

	writeJSON(w, http.StatusOK, dataBody{Data: result})
	return nil
}

// writeGenerateError answers a failed generation. Errors it cannot classify
// are returned to Handle.
func writeGenerateError(w http.ResponseWriter, r *http.Request, err error) error {
	var invalid *ideas.InvalidCommandError
	if errors.As(err, &invalid) {
		metrics.SuggestionsGenerated.WithLabelValues("invalid").Inc()
		logging.AddToEvent(r.Context(), slog.Any("validation_errors", invalid.Details))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Validation error", Details: invalid.Details})
		return nil
	}

	if errors.Is(err, ideas.ErrNoSuggestions) {
		metrics.SuggestionsGenerated.WithLabelValues("empty").Inc()
		logging.AddToEvent(r.Context(), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "AI provider returned no suggestions"})
		return nil
	}

	var llmErr *llm.Error
	if !errors.As(err, &llmErr) {
		metrics.SuggestionsGenerated.WithLabelValues("error").Inc()
		return err
	}

	metrics.SuggestionsGenerated.WithLabelValues(string(llmErr.Kind)).Inc()
	logging.AddToEvent(r.Context(),
		slog.String("llm_error_kind", string(llmErr.Kind)),
		slog.String("error", llmErr.Error()),
	)

	switch llmErr.Kind {
	case llm.KindRateLimit:
		if llmErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(llmErr.RetryAfter.Seconds()))))
		}
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "AI provider rate limit exceeded, try again later"})
	case llm.KindTimeout:
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "AI provider timed out"})
	case llm.KindProviderError, llm.KindNetwork, llm.KindValidation:
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "AI provider error"})
	case llm.KindConfiguration:
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "AI provider is not configured"})
	default:
		return err
	}
	return nil
}

func handleRelations(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "public, max-age=300, stale-while-revalidate=600")
	writeJSON(w, http.StatusOK, dataBody{Data: deps.Generator.Catalog().Relations()})
	return nil
}

func handleOccasions(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "public, max-age=300, stale-while-revalidate=600")
	writeJSON(w, http.StatusOK, dataBody{Data: deps.Generator.Catalog().Occasions()})
	return nil
}

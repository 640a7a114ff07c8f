package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/PauloHFS/giftideas/internal/llm")

var (
	llmRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_request_duration_seconds",
		Help:    "LLM request duration in seconds, retries included",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "model", "status"})

	llmRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_requests_total",
		Help: "Total number of LLM requests",
	}, []string{"method", "model"})

	llmErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_errors_total",
		Help: "Total number of LLM errors by kind",
	}, []string{"method", "model", "kind"})

	llmRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_retries_total",
		Help: "Total number of LLM request retries by the failure that caused them",
	}, []string{"kind"})

	llmTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Total number of tokens used",
	}, []string{"method", "model", "token_type"})
)

func recordRequest(method, model, status string, duration time.Duration) {
	llmRequestDuration.WithLabelValues(method, model, status).Observe(duration.Seconds())
	llmRequestsTotal.WithLabelValues(method, model).Inc()
}

func recordError(method, model string, kind Kind) {
	llmErrorsTotal.WithLabelValues(method, model, string(kind)).Inc()
}

func recordRetry(kind Kind) {
	llmRetriesTotal.WithLabelValues(string(kind)).Inc()
}

func recordTokens(method, model string, usage Usage) {
	if usage.PromptTokens > 0 {
		llmTokensTotal.WithLabelValues(method, model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		llmTokensTotal.WithLabelValues(method, model, "completion").Add(float64(usage.CompletionTokens))
	}
	if usage.TotalTokens > 0 {
		llmTokensTotal.WithLabelValues(method, model, "total").Add(float64(usage.TotalTokens))
	}
}

// observe wraps one logical call in a span and records its metrics.
func (c *Client) observe(ctx context.Context, method, model string, fn func(context.Context) (Usage, error)) error {
	ctx, span := tracer.Start(ctx, "llm."+method, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.base_url", c.cfg.BaseURL),
		attribute.Int("llm.max_attempts", c.cfg.Retry.MaxAttempts),
	))
	defer span.End()

	start := time.Now()
	usage, err := fn(ctx)
	recordTokens(method, model, usage)

	if err != nil {
		kind := KindOf(err)
		recordRequest(method, model, "error", time.Since(start))
		recordError(method, model, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		return err
	}

	recordRequest(method, model, "success", time.Since(start))
	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", usage.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", usage.TotalTokens),
	)
	return nil
}

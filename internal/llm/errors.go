package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies every failure the client can surface.
type Kind string

const (
	KindConfiguration Kind = "CONFIGURATION"
	KindTimeout       Kind = "TIMEOUT"
	KindRateLimit     Kind = "RATE_LIMIT"
	KindProviderError Kind = "PROVIDER_ERROR"
	KindValidation    Kind = "VALIDATION"
	KindInvalidInput  Kind = "INVALID_INPUT"
	KindNetwork       Kind = "NETWORK"
	KindUnknown       Kind = "UNKNOWN"
)

// Retryable reports whether the kind describes a transient gateway condition.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimit, KindProviderError, KindTimeout, KindNetwork:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrRateLimit     = &Error{Kind: KindRateLimit}
	ErrProvider      = &Error{Kind: KindProviderError}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrUnknown       = &Error{Kind: KindUnknown}
)

// Error is the single error type returned by the client.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	// RetryAfter is set for KindRateLimit when the gateway sent Retry-After.
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return KindUnknown
}

func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind.Retryable()
	}
	return false
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// errorMessage extracts error.message from a gateway error body and falls
// back to the HTTP status line.
func errorMessage(resp *http.Response, body []byte) string {
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}

	status := resp.Status
	if status == "" {
		status = strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode)
	}
	return "gateway error: " + status
}

// parseRetryAfter accepts delay-seconds and HTTP-date values.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

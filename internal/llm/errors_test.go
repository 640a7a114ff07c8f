package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "2", 2 * time.Second},
		{"padded seconds", " 10 ", 10 * time.Second},
		{"zero", "0", 0},
		{"negative", "-3", 0},
		{"garbage", "soon", 0},
		{"past date", "Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}

	t.Run("future date", func(t *testing.T) {
		header := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
		got := parseRetryAfter(header)
		if got <= 60*time.Second || got > 90*time.Second {
			t.Errorf("parseRetryAfter(%q) = %v, want about 90s", header, got)
		}
	})
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("generating ideas: %w", &Error{Kind: KindRateLimit, Message: "slow down", StatusCode: 429})

	if !errors.Is(err, ErrRateLimit) {
		t.Error("expected wrapped rate limit error to match ErrRateLimit")
	}
	if errors.Is(err, ErrProvider) {
		t.Error("rate limit error must not match ErrProvider")
	}
	if KindOf(err) != KindRateLimit {
		t.Errorf("KindOf() = %s, want %s", KindOf(err), KindRateLimit)
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain errors should be KindUnknown")
	}
}

func TestError_UnwrapsCause(t *testing.T) {
	err := cancelled(context.DeadlineExceeded)
	if err.Kind != KindTimeout {
		t.Errorf("kind = %s, want %s", err.Kind, KindTimeout)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be reachable through errors.Is")
	}

	err = cancelled(context.Canceled)
	if err.Kind != KindUnknown {
		t.Errorf("kind = %s, want %s", err.Kind, KindUnknown)
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindConfiguration: false,
		KindTimeout:       true,
		KindRateLimit:     true,
		KindProviderError: true,
		KindValidation:    false,
		KindInvalidInput:  false,
		KindNetwork:       true,
		KindUnknown:       false,
	}

	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestError_Message(t *testing.T) {
	withStatus := &Error{Kind: KindProviderError, Message: "boom", StatusCode: 503}
	if got := withStatus.Error(); got != "llm PROVIDER_ERROR (status 503): boom" {
		t.Errorf("Error() = %q", got)
	}

	plain := &Error{Kind: KindInvalidInput, Message: "no messages"}
	if got := plain.Error(); got != "llm INVALID_INPUT: no messages" {
		t.Errorf("Error() = %q", got)
	}
}

package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAddToEvent(t *testing.T) {
	AddToEvent(context.Background(), slog.String("ignored", "no event"))

	ctx, event := NewEventContext(context.Background())
	AddToEvent(ctx, slog.String("operation", "generate"), slog.Int("suggestions", 5))

	attrs := event.Attrs()
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attrs, got %d", len(attrs))
	}
	if EventFromContext(ctx) != event {
		t.Error("EventFromContext should return the event stored in the context")
	}
}

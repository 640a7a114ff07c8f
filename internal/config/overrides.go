package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/PauloHFS/giftideas/internal/llm"
)

// LoadLLMOverrides reads a YAML file of partial gateway settings, e.g.
//
//	default_model: openai/gpt-4o
//	request_timeout: 20s
//	retry:
//	  max_attempts: 5
//	default_params:
//	  temperature: 0.9
//
// The API key is never read from this file.
func LoadLLMOverrides(path string) (llm.ConfigOverrides, error) {
	var overrides llm.ConfigOverrides

	data, err := os.ReadFile(path)
	if err != nil {
		return overrides, fmt.Errorf("failed to read llm overrides: %w", err)
	}

	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return overrides, fmt.Errorf("failed to parse llm overrides %s: %w", path, err)
	}
	overrides.APIKey = nil

	return overrides, nil
}

// WatchFile calls onChange whenever path is written, created or renamed into
// place. It watches the parent directory so editors that replace the file are
// handled. Events are debounced. WatchFile blocks until ctx is done.
func WatchFile(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	const debounce = 100 * time.Millisecond
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", slog.String("path", abs), slog.Any("error", err))
		case <-pending:
			pending = nil
			onChange()
		}
	}
}

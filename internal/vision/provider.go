// Package vision wraps external vision-capable models behind a provider
// registry. The pipeline only ever sees the Extractor adapter, which turns
// provider calls into per-photo fragments with a defined failure outcome.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("vision provider unavailable")

// TranscribeRequest carries one enhanced image plus the instruction text.
type TranscribeRequest struct {
	Prompt    string
	ImageMIME string
	Image     []byte
}

type IProvider interface {
	Name() string
	// Transcribe sends one image and returns the model's raw text output.
	Transcribe(ctx context.Context, model string, req TranscribeRequest) (string, error)
	// Generate is the text-only path, used by the chat fallback.
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("vision.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported vision provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("vision provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vision provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vision provider config: %w", err)
	}
	return nil
}

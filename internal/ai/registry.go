package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = normalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = normalizeName(name)
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Options carries the connection settings of the built-in providers.
type Options struct {
	GeminiAPIKey      string
	OllamaBaseURL     string
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterSiteURL string
	OpenRouterAppName string
}

// NewBuiltinRegistry registers gemini, ollama and openrouter.
func NewBuiltinRegistry(opts Options) *Registry {
	reg := NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (Provider, error) {
		return NewGeminiProvider(ctx, opts.GeminiAPIKey, strings.TrimSpace(model))
	})
	reg.Register("ollama", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		return NewOllamaProvider(opts.OllamaBaseURL, strings.TrimSpace(model)), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		return NewOpenRouterProvider(opts.OpenRouterBaseURL, opts.OpenRouterAPIKey, strings.TrimSpace(model),
			opts.OpenRouterSiteURL, opts.OpenRouterAppName), nil
	})
	return reg
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

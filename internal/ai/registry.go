package ai

import (
	"fmt"
	"sort"
	"time"
)

// RuntimeFactory builds a Runtime from RuntimeConfig.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries the knobs shared by all runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OpenRouter
	APIKey string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{
	ProviderOllama: func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	},
	ProviderOpenRouter: func(c RuntimeConfig) Runtime {
		return NewOpenRouterClient(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	},
}

// RegisterRuntime adds or replaces a provider.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// NewRuntime builds the runtime registered under provider.
func NewRuntime(provider string, cfg RuntimeConfig) (Runtime, error) {
	f, ok := registry[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", provider, Providers())
	}
	return f(cfg), nil
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

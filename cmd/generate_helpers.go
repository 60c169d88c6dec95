package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/gradeloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/gradeloom-cli/internal/config"
	"github.com/KaramelBytes/gradeloom-cli/internal/narrative"
	"github.com/KaramelBytes/gradeloom-cli/internal/pipeline"
	"github.com/KaramelBytes/gradeloom-cli/internal/store"
	"github.com/KaramelBytes/gradeloom-cli/internal/utils"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

func success(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func warnf(format string, args ...any) {
	warnColor.Fprintf(os.Stderr, "⚠ Warning: "+format+"\n", args...)
}

func debugf(format string, args ...any) {
	if debug {
		dimColor.Fprintf(os.Stderr, "DEBUG: "+format+"\n", args...)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	return t
}

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

func normalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ollama", "local":
		return ai.ProviderOllama
	case "openrouter", "openai", "anthropic", "google", "gemini", "meta", "llama":
		return ai.ProviderOpenRouter
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// buildRuntime resolves provider, host and timeouts from flags, environment
// and config, in that order.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := opts.ProviderFlag
	if strings.TrimSpace(providerName) == "" && cfg != nil {
		providerName = cfg.DefaultProvider
	}
	providerName = normalizeProvider(providerName)

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" && cfg != nil && cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
		rc.HTTPTimeout = 30 * time.Minute
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
		if v := os.Getenv("GRADELOOM_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
	}

	client, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return client, providerName, nil
}

// narratorFactory builds narrative generators from the loaded config.
func narratorFactory(cfg *cfgpkg.Global, ollamaHost string) pipeline.NarratorFactory {
	return func(provider, model string, offline bool) (*narrative.Generator, error) {
		opts := narrative.Options{Model: model}
		if cfg != nil {
			if opts.Model == "" {
				opts.Model = cfg.DefaultModel
			}
			opts.Temperature = cfg.Temperature
			opts.MaxTokens = cfg.MaxTokens
			if cfg.NarrativeTimeoutSec > 0 {
				opts.Timeout = time.Duration(cfg.NarrativeTimeoutSec) * time.Second
			}
			if cfg.Language != "" {
				lang, err := narrative.ParseLanguage(cfg.Language)
				if err != nil {
					return nil, err
				}
				opts.Language = lang
			}
		}
		if offline {
			return narrative.New(nil, opts)
		}
		rt, providerName, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: provider, OllamaHost: ollamaHost})
		if err != nil {
			return nil, err
		}
		if oc, ok := rt.(*ai.OllamaClient); ok {
			opts.Host = oc.Host()
		}
		debugf("narrative: provider=%s model=%s timeout=%s", providerName, opts.Model, opts.Timeout)
		return narrative.New(rt, opts)
	}
}

// openService opens the store and blob directory named by the config.
func openService(ctx context.Context, ollamaHost string) (*pipeline.Service, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("configuration not loaded")
	}
	driver, err := store.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, nil, err
	}
	if err := utils.EnsureDir(cfg.DataDir); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := cfg.DBDSN
	if dsn == "" && driver == store.DriverSQLite {
		dsn = store.SQLiteDSN(cfg.DBPath())
	}
	st, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := store.NewFSStore(cfg.BlobDir())
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	svc := &pipeline.Service{
		Store:    st,
		Blobs:    blobs,
		Narrator: narratorFactory(cfg, ollamaHost),
		Warn:     warnf,
	}
	return svc, func() { _ = st.Close() }, nil
}

// explainAIError turns runtime errors into an actionable message.
func explainAIError(err error, providerName, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		tErr    *ai.TimeoutError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set GRADELOOM_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &tErr), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("the model did not answer in time. Raise 'narrative_timeout_sec' or use a smaller model: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or add api_key in config (~/.gradeloom/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name or list known models with 'gradeloom models': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a model with a larger context or lower max_tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return fmt.Errorf("generation failed: %w", err)
	}
}

// copyOut writes data to path, creating parent directories.
func copyOut(path string, data []byte) error {
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

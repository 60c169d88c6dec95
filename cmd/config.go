package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/gradeloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/gradeloom-cli/internal/config"
	"github.com/KaramelBytes/gradeloom-cli/internal/narrative"
	"github.com/KaramelBytes/gradeloom-cli/internal/store"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set GradeLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "owner: %s\n", cfg.Owner)
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "db_driver: %s\n", cfg.DBDriver)
		if cfg.DBDSN != "" {
			fmt.Fprintf(out, "db_dsn: %s\n", mask(cfg.DBDSN))
		}
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "default_provider: %s\n", cfg.DefaultProvider)
		fmt.Fprintf(out, "default_model: %s\n", cfg.DefaultModel)
		fmt.Fprintf(out, "language: %s\n", cfg.Language)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "narrative_timeout_sec: %d\n", cfg.NarrativeTimeoutSec)
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		fmt.Fprintf(out, "ollama_timeout_sec: %d\n", cfg.OllamaTimeoutSec)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "owner":
		c.Owner = val
	case "data_dir":
		c.DataDir = val
	case "db_driver":
		d, perr := store.ParseDriver(val)
		if perr != nil {
			return perr
		}
		c.DBDriver = string(d)
	case "db_dsn":
		c.DBDSN = val
	case "api_key":
		c.APIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		p := normalizeProvider(val)
		if p != ai.ProviderOllama && p != ai.ProviderOpenRouter {
			return fmt.Errorf("invalid default_provider: %s (use ollama or openrouter)", val)
		}
		c.DefaultProvider = p
	case "language":
		lang, perr := narrative.ParseLanguage(val)
		if perr != nil {
			return perr
		}
		c.Language = string(lang)
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "narrative_timeout_sec":
		c.NarrativeTimeoutSec, err = atoi()
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "ollama_host":
		c.OllamaHost = val
	case "ollama_timeout_sec":
		c.OllamaTimeoutSec, err = atoi()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

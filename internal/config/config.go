package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. GRADELOOM_DB_DRIVER.
const EnvPrefix = "GRADELOOM"

// Global configuration structure.
type Global struct {
	Owner   string `mapstructure:"owner" yaml:"owner"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// Storage
	DBDriver string `mapstructure:"db_driver" yaml:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn" yaml:"db_dsn"`

	// Narrative generation
	APIKey              string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider     string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel        string  `mapstructure:"default_model" yaml:"default_model"`
	Temperature         float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens           int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Language            string  `mapstructure:"language" yaml:"language"`
	NarrativeTimeoutSec int     `mapstructure:"narrative_timeout_sec" yaml:"narrative_timeout_sec"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`
}

// Dir returns ~/.gradeloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".gradeloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.gradeloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.gradeloom/config.yaml) > defaults.
// A .env file in the working directory is read first; variables already set
// in the environment win over it.
func Load(cfgFile string) (*Global, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("owner", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("api_key", "")
	v.SetDefault("default_provider", "ollama")
	v.SetDefault("default_model", "gemma3:12b")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("language", "español")
	v.SetDefault("narrative_timeout_sec", 1800)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 1800)

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(dir, "data")
	}
	if c.Owner == "" {
		c.Owner = defaultOwner()
	}
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	return &c, nil
}

// DBPath is the default SQLite database file.
func (c *Global) DBPath() string { return filepath.Join(c.DataDir, "gradeloom.db") }

// BlobDir is where uploads and rendered reports are kept.
func (c *Global) BlobDir() string { return filepath.Join(c.DataDir, "files") }

func defaultOwner() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if n := os.Getenv("USER"); n != "" {
		return n
	}
	return "default"
}

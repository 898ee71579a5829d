package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the CLI and the HTTP service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr              string    `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel          string    `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat         string    `json:"log_format" yaml:"log_format" toml:"log_format"`
	JournalPath       string    `json:"journal_path" yaml:"journal_path" toml:"journal_path"`
	MaxBodyBytes      int64     `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// RunTimeoutSeconds bounds one HTTP run or batch; 0 disables.
	RunTimeoutSeconds int64     `json:"run_timeout_seconds" yaml:"run_timeout_seconds" toml:"run_timeout_seconds"`
	TemplateCacheSize int       `json:"template_cache_size" yaml:"template_cache_size" toml:"template_cache_size"`
	CORS              CORS      `json:"cors" yaml:"cors" toml:"cors"`
	Providers         Providers `json:"providers" yaml:"providers" toml:"providers"`
}

// CORS configures the HTTP API's cross-origin policy.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Providers configures the stock parsers.
type Providers struct {
	OpenAI    Provider `json:"openai" yaml:"openai" toml:"openai"`
	Anthropic Provider `json:"anthropic" yaml:"anthropic" toml:"anthropic"`
	Gemini    Provider `json:"gemini" yaml:"gemini" toml:"gemini"`
	Llama     Llama    `json:"llama" yaml:"llama" toml:"llama"`
}

// Provider configures a hosted model API. A parser is registered only when
// a key is available.
type Provider struct {
	APIKey    string `json:"api_key" yaml:"api_key" toml:"api_key"`
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
	BaseURL   string `json:"base_url" yaml:"base_url" toml:"base_url"`
	// Models are extra model ids routed to this provider.
	Models []string `json:"models" yaml:"models" toml:"models"`
}

// Key returns the configured key, falling back to the APIKeyEnv variable.
func (p Provider) Key() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// Llama configures the in-process llama parser.
type Llama struct {
	Enabled     bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	ModelsDir   string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	ContextSize int      `json:"context_size" yaml:"context_size" toml:"context_size"`
	Threads     int      `json:"threads" yaml:"threads" toml:"threads"`
	Models      []string `json:"models" yaml:"models" toml:"models"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr              = ":8080"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
	DefaultMaxBodyBytes      = 1 << 20
	DefaultTemplateCacheSize = 512
	DefaultLlamaContextSize  = 2048
	DefaultLlamaThreads      = 4
)

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.TemplateCacheSize <= 0 {
		c.TemplateCacheSize = DefaultTemplateCacheSize
	}
	if c.RunTimeoutSeconds < 0 {
		c.RunTimeoutSeconds = 0
	}
	if len(c.CORS.Origins) == 0 {
		c.CORS.Origins = []string{"*"}
	}
	if len(c.CORS.Methods) == 0 {
		c.CORS.Methods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.Headers) == 0 {
		c.CORS.Headers = []string{"Content-Type", "Authorization"}
	}
	if c.Providers.OpenAI.APIKeyEnv == "" {
		c.Providers.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Providers.Anthropic.APIKeyEnv == "" {
		c.Providers.Anthropic.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if c.Providers.Gemini.APIKeyEnv == "" {
		c.Providers.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Providers.Llama.ContextSize <= 0 {
		c.Providers.Llama.ContextSize = DefaultLlamaContextSize
	}
	if c.Providers.Llama.Threads <= 0 {
		c.Providers.Llama.Threads = DefaultLlamaThreads
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

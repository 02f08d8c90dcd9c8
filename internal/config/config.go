package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/prompt"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// LLM backend
	LLM LLMConfig `yaml:"llm"`

	// Prompt defaults, overridable per run
	OutputLanguage string `yaml:"output_language"`
	BookType       string `yaml:"book_type"`
	CustomPrompt   string `yaml:"custom_prompt"`

	// Document loading
	MaxUploadBytes   int64 `yaml:"max_upload_bytes"`
	MaxDepth         int   `yaml:"max_depth"`
	SkipNonEssential bool  `yaml:"skip_non_essential"`

	// Stage cache; empty keeps it in memory
	CacheDBPath string `yaml:"cache_db_path"`

	// In-memory state
	DocumentTTL time.Duration `yaml:"document_ttl"`
	RunTTL      time.Duration `yaml:"run_ttl"`
	StatsWindow time.Duration `yaml:"stats_window"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

func defaults() Config {
	return Config{
		Port: "8090",
		LLM: LLMConfig{
			Provider:    string(llm.KindOpenAI),
			Temperature: 0.7,
			Timeout:     5 * time.Minute,
		},
		OutputLanguage: "en",
		BookType:       string(prompt.NonFiction),
		MaxUploadBytes: 52428800, // 50MB
		MaxDepth:       2,
		CacheDBPath:    "bookdigest-cache.db",
		DocumentTTL:    24 * time.Hour,
		RunTTL:         1 * time.Hour,
		StatsWindow:    1 * time.Hour,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by BOOKDIGEST_CONFIG, then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("BOOKDIGEST_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("BOOKDIGEST_API_KEY", cfg.APIKey)

	cfg.LLM.Provider = envOr("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = envOr("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = envOr("LLM_API_KEY", cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		switch llm.Kind(cfg.LLM.Provider) {
		case llm.KindGemini:
			cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		case llm.KindOpenAI:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	cfg.LLM.Model = envOr("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Temperature = envFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.Timeout = envDuration("LLM_TIMEOUT", cfg.LLM.Timeout)

	cfg.OutputLanguage = envOr("OUTPUT_LANGUAGE", cfg.OutputLanguage)
	cfg.BookType = envOr("BOOK_TYPE", cfg.BookType)
	cfg.CustomPrompt = envOr("CUSTOM_PROMPT", cfg.CustomPrompt)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxDepth = envInt("MAX_DEPTH", cfg.MaxDepth)
	cfg.SkipNonEssential = envBool("SKIP_NON_ESSENTIAL", cfg.SkipNonEssential)
	cfg.CacheDBPath = envOr("CACHE_DB_PATH", cfg.CacheDBPath)

	cfg.DocumentTTL = envDuration("DOCUMENT_TTL", cfg.DocumentTTL)
	cfg.RunTTL = envDuration("RUN_TTL", cfg.RunTTL)
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)

	d := defaults()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = d.MaxDepth
	}
	if cfg.DocumentTTL <= 0 {
		cfg.DocumentTTL = d.DocumentTTL
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = d.RunTTL
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = d.StatsWindow
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = d.LLM.Timeout
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks settings shared by the server and the CLI. A missing LLM
// credential is not an error here; it is reported when a run starts.
func (c Config) Validate() error {
	if !validProvider(c.LLM.Provider) {
		return fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if !prompt.SupportedLanguage(c.OutputLanguage) {
		return fmt.Errorf("OUTPUT_LANGUAGE %q is not supported", c.OutputLanguage)
	}
	if _, err := prompt.ParseBookType(c.BookType); err != nil {
		return fmt.Errorf("BOOK_TYPE: %w", err)
	}
	return nil
}

// ValidateServer additionally requires the service API key.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("BOOKDIGEST_API_KEY is required")
	}
	return nil
}

// LLMSettings converts the backend section into provider settings.
func (c Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider:    llm.Kind(c.LLM.Provider),
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		Timeout:     c.LLM.Timeout,
	}
}

func validProvider(p string) bool {
	for _, k := range llm.Kinds() {
		if string(k) == p {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

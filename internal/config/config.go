package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the notesreader API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	LLM         LLMConfig         `yaml:"llm"`
	Quiz        QuizConfig        `yaml:"quiz"`
	Translation TranslationConfig `yaml:"translation"`
	Narration   NarrationConfig   `yaml:"narration"`
	Reading     ReadingConfig     `yaml:"reading"`
	Loader      LoaderConfig      `yaml:"loader"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings. The write timeout must cover a
// synchronous quiz generation.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds the OpenAI-compatible endpoint shared by quiz generation,
// LLM translation and speech.
type LLMConfig struct {
	Provider string `yaml:"provider"` // metrics label (default: openai)
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// QuizConfig holds quiz generation settings.
type QuizConfig struct {
	Model         string       `yaml:"model"`
	Difficulty    string       `yaml:"difficulty"`
	QuestionCount int          `yaml:"question_count"`
	TimeoutSec    int          `yaml:"timeout_sec"`
	Budget        BudgetConfig `yaml:"budget"`
}

// TranslationConfig selects and tunes the translation provider.
type TranslationConfig struct {
	Provider      string `yaml:"provider"` // mymemory (default), openai, none
	BaseURL       string `yaml:"base_url"`
	Email         string `yaml:"email"`
	Model         string `yaml:"model"` // openai provider only
	SourceLang    string `yaml:"source_lang"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"` // 0 disables the cache
}

// NarrationConfig holds text-to-speech settings.
type NarrationConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Model      string  `yaml:"model"`
	Voice      string  `yaml:"voice"`
	Rate       float64 `yaml:"rate"`
	Pitch      float64 `yaml:"pitch"`
	Volume     float64 `yaml:"volume"`
	ClipTTLMin int     `yaml:"clip_ttl_min"`
	TimeoutSec int     `yaml:"timeout_sec"`
}

// ReadingConfig holds the progressive reading window and session lifecycle.
type ReadingConfig struct {
	InitialVisible     int `yaml:"initial_visible"`
	InitialExpanded    int `yaml:"initial_expanded"`
	LoadMoreBatch      int `yaml:"load_more_batch"`
	WindowThreshold    int `yaml:"window_threshold"`
	HighlightMaxChars  int `yaml:"highlight_max_chars"`
	TickIntervalSec    int `yaml:"tick_interval_sec"`
	SessionTTLMin      int `yaml:"session_ttl_min"`
	CleanupIntervalSec int `yaml:"cleanup_interval_sec"`
}

// LoaderConfig holds material loading retries.
type LoaderConfig struct {
	MaxAttempts  int `yaml:"max_attempts"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it, applies defaults
// and validates the result.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	setInt(&c.HTTP.ReadTimeoutSec, 10)
	setInt(&c.HTTP.WriteTimeoutSec, 90)
	setInt(&c.HTTP.ShutdownSec, 10)

	setString(&c.Database.Driver, "valkey")
	setInt(&c.Database.ReadinessTimeout, 10)

	setString(&c.LLM.Provider, "openai")

	setString(&c.Quiz.Model, "gpt-4o-mini")
	setString(&c.Quiz.Difficulty, "medium")
	setInt(&c.Quiz.QuestionCount, 4)
	setInt(&c.Quiz.TimeoutSec, 60)

	setString(&c.Translation.Provider, "mymemory")
	setString(&c.Translation.Model, c.Quiz.Model)
	setString(&c.Translation.SourceLang, "en")
	setInt(&c.Translation.TimeoutSec, 15)

	setString(&c.Narration.Model, "tts-1")
	setString(&c.Narration.Voice, "alloy")
	setFloat(&c.Narration.Rate, 1)
	setFloat(&c.Narration.Pitch, 1)
	setFloat(&c.Narration.Volume, 1)
	setInt(&c.Narration.ClipTTLMin, 60)
	setInt(&c.Narration.TimeoutSec, 60)

	setInt(&c.Reading.InitialVisible, 3)
	setInt(&c.Reading.InitialExpanded, 1)
	setInt(&c.Reading.LoadMoreBatch, 5)
	setInt(&c.Reading.WindowThreshold, 10)
	setInt(&c.Reading.HighlightMaxChars, 500)
	setInt(&c.Reading.TickIntervalSec, 1)
	setInt(&c.Reading.SessionTTLMin, 30)
	setInt(&c.Reading.CleanupIntervalSec, 60)

	setInt(&c.Loader.MaxAttempts, 3)
	setInt(&c.Loader.RetryDelayMs, 1000)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	switch c.Quiz.Budget.Action {
	case "", "warn", "reject":
	default:
		return fmt.Errorf("quiz.budget.action must be \"warn\" or \"reject\", got %q", c.Quiz.Budget.Action)
	}
	switch c.Translation.Provider {
	case "mymemory", "none":
	case "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("translation.provider %q requires llm.api_key", c.Translation.Provider)
		}
	default:
		return fmt.Errorf("translation.provider must be \"mymemory\", \"openai\" or \"none\", got %q", c.Translation.Provider)
	}
	if c.Narration.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("narration.enabled requires llm.api_key")
	}
	if c.Reading.InitialExpanded > c.Reading.InitialVisible {
		return fmt.Errorf("reading.initial_expanded (%d) must not exceed reading.initial_visible (%d)",
			c.Reading.InitialExpanded, c.Reading.InitialVisible)
	}
	return nil
}

// Duration helpers keep the YAML in plain integers.

func (h HTTPConfig) ReadTimeout() time.Duration  { return seconds(h.ReadTimeoutSec) }
func (h HTTPConfig) WriteTimeout() time.Duration { return seconds(h.WriteTimeoutSec) }
func (h HTTPConfig) ShutdownTimeout() time.Duration {
	return seconds(h.ShutdownSec)
}

func (q QuizConfig) Timeout() time.Duration        { return seconds(q.TimeoutSec) }
func (t TranslationConfig) Timeout() time.Duration { return seconds(t.TimeoutSec) }
func (t TranslationConfig) CacheTTL() time.Duration {
	return time.Duration(t.CacheTTLHours) * time.Hour
}

func (n NarrationConfig) Timeout() time.Duration { return seconds(n.TimeoutSec) }
func (n NarrationConfig) ClipTTL() time.Duration { return time.Duration(n.ClipTTLMin) * time.Minute }

func (r ReadingConfig) TickInterval() time.Duration    { return seconds(r.TickIntervalSec) }
func (r ReadingConfig) SessionTTL() time.Duration      { return time.Duration(r.SessionTTLMin) * time.Minute }
func (r ReadingConfig) CleanupInterval() time.Duration { return seconds(r.CleanupIntervalSec) }

func (l LoaderConfig) RetryDelay() time.Duration {
	return time.Duration(l.RetryDelayMs) * time.Millisecond
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v <= 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	GitHub   GitHubConfig   `mapstructure:"github" yaml:"github"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Audit    AuditConfig    `mapstructure:"audit" yaml:"audit"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig tunes the HTTP API server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	CORSOrigins  string        `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LLMConfig defines the configuration for the language-model provider.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float64       `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// GitHubConfig defines how repository contents are fetched.
type GitHubConfig struct {
	Token             string        `mapstructure:"token" yaml:"-"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	MaxFiles          int           `mapstructure:"max_files" yaml:"max_files"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	FetchConcurrency  int           `mapstructure:"fetch_concurrency" yaml:"fetch_concurrency"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// AuditConfig carries the financial-model constants. The defaults are the
// reference market assumptions; the arithmetic itself never changes.
type AuditConfig struct {
	Currency                 string `mapstructure:"currency" yaml:"currency"`
	HourlyRate               int    `mapstructure:"hourly_rate" yaml:"hourly_rate"`
	DowntimeRatePerHour      int    `mapstructure:"downtime_rate_per_hour" yaml:"downtime_rate_per_hour"`
	DowntimeHoursPerCritical int    `mapstructure:"downtime_hours_per_critical" yaml:"downtime_hours_per_critical"`
	FinePerCritical          int    `mapstructure:"fine_per_critical" yaml:"fine_per_critical"`
	ReputationPerIncident    int    `mapstructure:"reputation_per_incident" yaml:"reputation_per_incident"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vulnexplain")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.addr", ":8001")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.cors_origins", "*")

	// -- LLM --
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.api_timeout", "90s")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.top_p", 0.1)
	v.SetDefault("llm.max_tokens", 8192)

	// -- GitHub --
	v.SetDefault("github.fetch_timeout", "10s")
	v.SetDefault("github.max_files", 20)
	v.SetDefault("github.requests_per_second", 5.0)
	v.SetDefault("github.fetch_concurrency", 4)

	// -- Audit financial model --
	v.SetDefault("audit.currency", "INR")
	v.SetDefault("audit.hourly_rate", 2500)
	v.SetDefault("audit.downtime_rate_per_hour", 50000)
	v.SetDefault("audit.downtime_hours_per_critical", 4)
	v.SetDefault("audit.fine_per_critical", 250000)
	v.SetDefault("audit.reputation_per_incident", 100000)
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "VULNEXPLAIN_LLM_API_KEY", "GROQ_API_KEY")
	v.BindEnv("github.token", "VULNEXPLAIN_GITHUB_TOKEN", "GITHUB_TOKEN")
	v.BindEnv("database.url", "VULNEXPLAIN_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Unmarshal misses env-only bindings when no config key exists.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is a required configuration field")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be a positive integer")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	if c.GitHub.MaxFiles <= 0 {
		return fmt.Errorf("github.max_files must be a positive integer")
	}
	if c.GitHub.FetchConcurrency <= 0 {
		return fmt.Errorf("github.fetch_concurrency must be a positive integer")
	}
	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("audit configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the financial-model constants.
func (a *AuditConfig) Validate() error {
	if a.Currency == "" {
		return fmt.Errorf("currency must not be empty")
	}
	if a.HourlyRate < 0 || a.DowntimeRatePerHour < 0 || a.FinePerCritical < 0 || a.ReputationPerIncident < 0 {
		return fmt.Errorf("financial rates must be non-negative")
	}
	if a.DowntimeHoursPerCritical < 0 {
		return fmt.Errorf("downtime_hours_per_critical must be non-negative")
	}
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Probes     ProbesConfig     `mapstructure:"probes" yaml:"probes"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment" yaml:"enrichment"`
	Mailer     MailerConfig     `mapstructure:"mailer" yaml:"mailer"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ProbesConfig controls the dispatcher and the per-probe execution budget.
type ProbesConfig struct {
	// Timeout is the per-probe execution budget. Each probe owns its own
	// timeout; no cross-probe budget exists unless BatchTimeout is set.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Concurrency bounds the fan-out. Probes run logically independent of
	// one another regardless of this bound.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// BatchTimeout, when positive, is an optional deadline across the whole
	// fan-out. Probes still in flight on expiry are recorded as timeout
	// errors rather than dropped.
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
}

// DatabaseConfig configures the optional PostgreSQL store. An empty URL
// disables persistence entirely.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// EnrichmentConfig configures the external enrichment collaborators.
type EnrichmentConfig struct {
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	URLScan URLScanConfig `mapstructure:"urlscan" yaml:"urlscan"`
}

// LLMConfig configures the summary model. An empty APIKey disables the call
// and the coordinator falls back to a placeholder summary.
type LLMConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
}

// URLScanConfig configures the urlscan.io submit/poll client.
type URLScanConfig struct {
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts" yaml:"poll_attempts"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MailerConfig configures outbound report mail.
type MailerConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen" yaml:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vulnsight")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Probes --
	v.SetDefault("probes.timeout", "10s")
	v.SetDefault("probes.concurrency", 8)
	v.SetDefault("probes.batch_timeout", "0s")

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Enrichment --
	v.SetDefault("enrichment.llm.model", "gemini-2.5-flash")
	v.SetDefault("enrichment.llm.api_timeout", "45s")
	v.SetDefault("enrichment.llm.max_tokens", 700)
	v.SetDefault("enrichment.llm.temperature", 0.2)
	v.SetDefault("enrichment.urlscan.endpoint", "https://urlscan.io/api/v1")
	v.SetDefault("enrichment.urlscan.poll_interval", "3s")
	v.SetDefault("enrichment.urlscan.poll_attempts", 5)
	v.SetDefault("enrichment.urlscan.timeout", "20s")

	// -- Mailer --
	v.SetDefault("mailer.host", "smtp.gmail.com")
	v.SetDefault("mailer.port", 587)

	// -- Server --
	v.SetDefault("server.listen", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("database.url", "VULNSIGHT_DATABASE_URL")
	v.BindEnv("enrichment.llm.api_key", "VULNSIGHT_LLM_API_KEY")
	v.BindEnv("enrichment.urlscan.api_key", "VULNSIGHT_URLSCAN_API_KEY")
	v.BindEnv("mailer.password", "VULNSIGHT_SMTP_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Probes.Concurrency <= 0 {
		return fmt.Errorf("probes.concurrency must be a positive integer")
	}
	if c.Probes.Timeout <= 0 {
		return fmt.Errorf("probes.timeout must be a positive duration")
	}
	if c.Probes.BatchTimeout < 0 {
		return fmt.Errorf("probes.batch_timeout must not be negative")
	}
	if c.Enrichment.URLScan.PollAttempts < 0 {
		return fmt.Errorf("enrichment.urlscan.poll_attempts must not be negative")
	}
	return nil
}

package models

// Config is the top-level application configuration, loaded from a JSON file
// with environment overrides applied afterwards.
type Config struct {
	LogLevel string         `json:"logLevel"`
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Chat     ChatConfig     `json:"chat"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
}

type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// ChatConfig holds the tunables of the chat pipeline and its debug store.
type ChatConfig struct {
	RetentionDays       int  `json:"retentionDays"`
	DebugEnabled        bool `json:"debugEnabled"`
	DebugEventCapacity  int  `json:"debugEventCapacity"`
	DebugEventMaxAgeMin int  `json:"debugEventMaxAgeMin"`
	SendTimeoutSec      int  `json:"sendTimeoutSec"`
}

type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"useStdout"`
}

// ConfigError indicates invalid or missing configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return "config error: " + e.Message
}

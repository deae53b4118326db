// config.go defines the immutable runtime parameters for the agent, built
// either explicitly or from the AIVORY_* environment variables. Construction
// mirrors the teacher's functional-options style (CollectorOption /
// WithSink), generalized from "select a sink" to "set a config field".

package agent

import (
	"os"
	"strconv"
)

// Config holds the agent's immutable runtime parameters. Build one with
// NewConfig or ConfigFromEnv; Config is validated at construction and never
// mutated afterward.
type Config struct {
	APIKey               string
	BackendURL           string
	Environment          string
	ApplicationName      string
	SamplingRate         float64
	MaxVariableDepth     int
	Debug                bool
	EnableBreakpoints    bool
	HeartbeatIntervalMs  int
	MaxReconnectAttempts int
}

// ConfigOption mutates a Config during construction.
type ConfigOption func(*Config)

// WithAPIKey sets the collector bearer token.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) { c.APIKey = key }
}

// WithBackendURL overrides the collector's websocket URL.
func WithBackendURL(url string) ConfigOption {
	return func(c *Config) { c.BackendURL = url }
}

// WithEnvironment sets the environment label (e.g. "production", "staging").
func WithEnvironment(env string) ConfigOption {
	return func(c *Config) { c.Environment = env }
}

// WithApplicationName sets an optional application label.
func WithApplicationName(name string) ConfigOption {
	return func(c *Config) { c.ApplicationName = name }
}

// WithSamplingRate sets the error-hook sampling rate, in [0,1].
func WithSamplingRate(rate float64) ConfigOption {
	return func(c *Config) { c.SamplingRate = rate }
}

// WithMaxVariableDepth sets the variable-tree depth ceiling, in [0,10].
func WithMaxVariableDepth(depth int) ConfigOption {
	return func(c *Config) { c.MaxVariableDepth = depth }
}

// WithDebug enables verbose internal logging.
func WithDebug(debug bool) ConfigOption {
	return func(c *Config) { c.Debug = debug }
}

// WithBreakpoints enables or disables the remote-breakpoint subsystem.
func WithBreakpoints(enabled bool) ConfigOption {
	return func(c *Config) { c.EnableBreakpoints = enabled }
}

// WithHeartbeatInterval sets the intended heartbeat cadence, in milliseconds.
// Enforcement of the cadence is the host's responsibility.
func WithHeartbeatInterval(ms int) ConfigOption {
	return func(c *Config) { c.HeartbeatIntervalMs = ms }
}

// WithMaxReconnectAttempts caps the number of reconnect attempts Transport
// will make before staying down.
func WithMaxReconnectAttempts(n int) ConfigOption {
	return func(c *Config) { c.MaxReconnectAttempts = n }
}

func defaultConfig() Config {
	return Config{
		BackendURL:           "wss://api.aivory.net/ws/monitor/agent",
		Environment:          "production",
		SamplingRate:         1.0,
		MaxVariableDepth:     10,
		EnableBreakpoints:    true,
		HeartbeatIntervalMs:  30000,
		MaxReconnectAttempts: 10,
	}
}

// NewConfig builds a Config from explicit options over the package defaults.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFromEnv builds a Config from the AIVORY_* environment variables,
// with any supplied opts applied on top (opts win over environment).
func ConfigFromEnv(opts ...ConfigOption) (*Config, error) {
	cfg := defaultConfig()

	if v, ok := os.LookupEnv("AIVORY_API_KEY"); ok {
		cfg.APIKey = v
	}
	if v, ok := os.LookupEnv("AIVORY_BACKEND_URL"); ok {
		cfg.BackendURL = v
	}
	if v, ok := os.LookupEnv("AIVORY_ENVIRONMENT"); ok {
		cfg.Environment = v
	}
	if v, ok := os.LookupEnv("AIVORY_APP_NAME"); ok {
		cfg.ApplicationName = v
	}
	if v, ok := os.LookupEnv("AIVORY_SAMPLING_RATE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SamplingRate = f
		}
	}
	if v, ok := os.LookupEnv("AIVORY_MAX_DEPTH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxVariableDepth = n
		}
	}
	if v, ok := os.LookupEnv("AIVORY_DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
	if v, ok := os.LookupEnv("AIVORY_ENABLE_BREAKPOINTS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableBreakpoints = b
		}
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate enforces the Config invariants from the spec: non-empty API key,
// sampling rate in [0,1], max variable depth in [0,10].
func (c *Config) validate() error {
	if c.APIKey == "" {
		return &ConfigInvalid{Reason: "apiKey must not be empty"}
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return &ConfigInvalid{Reason: "samplingRate must be in [0,1]"}
	}
	if c.MaxVariableDepth < 0 || c.MaxVariableDepth > 10 {
		return &ConfigInvalid{Reason: "maxVariableDepth must be in [0,10]"}
	}
	return nil
}

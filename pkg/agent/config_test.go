package agent

import (
	"errors"
	"testing"
)

func TestNewConfig_RequiresAPIKey(t *testing.T) {
	_, err := NewConfig()
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	var ci *ConfigInvalid
	if !errors.As(err, &ci) {
		t.Errorf("expected *ConfigInvalid, got %T", err)
	}
}

func TestNewConfig_DefaultsApplied(t *testing.T) {
	cfg, err := NewConfig(WithAPIKey("key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.SamplingRate != 1.0 {
		t.Errorf("SamplingRate = %v, want 1.0", cfg.SamplingRate)
	}
	if cfg.MaxVariableDepth != 10 {
		t.Errorf("MaxVariableDepth = %v, want 10", cfg.MaxVariableDepth)
	}
	if !cfg.EnableBreakpoints {
		t.Error("expected breakpoints enabled by default")
	}
}

func TestNewConfig_OptionsOverrideDefaults(t *testing.T) {
	cfg, err := NewConfig(
		WithAPIKey("key"),
		WithEnvironment("staging"),
		WithSamplingRate(0.5),
		WithMaxVariableDepth(2),
		WithDebug(true),
		WithBreakpoints(false),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != "staging" || cfg.SamplingRate != 0.5 || cfg.MaxVariableDepth != 2 || !cfg.Debug || cfg.EnableBreakpoints {
		t.Errorf("options not applied: %+v", cfg)
	}
}

func TestNewConfig_SamplingRateOutOfRange(t *testing.T) {
	for _, rate := range []float64{-0.1, 1.1} {
		if _, err := NewConfig(WithAPIKey("key"), WithSamplingRate(rate)); err == nil {
			t.Errorf("expected error for sampling rate %v", rate)
		}
	}
}

func TestNewConfig_MaxVariableDepthOutOfRange(t *testing.T) {
	for _, depth := range []int{-1, 11} {
		if _, err := NewConfig(WithAPIKey("key"), WithMaxVariableDepth(depth)); err == nil {
			t.Errorf("expected error for max variable depth %v", depth)
		}
	}
}

func TestConfigFromEnv_ReadsEnvironmentVariables(t *testing.T) {
	t.Setenv("AIVORY_API_KEY", "env-key")
	t.Setenv("AIVORY_BACKEND_URL", "wss://example.test/ws")
	t.Setenv("AIVORY_ENVIRONMENT", "staging")
	t.Setenv("AIVORY_APP_NAME", "myapp")
	t.Setenv("AIVORY_SAMPLING_RATE", "0.25")
	t.Setenv("AIVORY_MAX_DEPTH", "4")
	t.Setenv("AIVORY_DEBUG", "true")
	t.Setenv("AIVORY_ENABLE_BREAKPOINTS", "false")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "env-key" || cfg.BackendURL != "wss://example.test/ws" ||
		cfg.Environment != "staging" || cfg.ApplicationName != "myapp" ||
		cfg.SamplingRate != 0.25 || cfg.MaxVariableDepth != 4 ||
		!cfg.Debug || cfg.EnableBreakpoints {
		t.Errorf("env values not applied: %+v", cfg)
	}
}

func TestConfigFromEnv_OptionsWinOverEnvironment(t *testing.T) {
	t.Setenv("AIVORY_API_KEY", "env-key")
	t.Setenv("AIVORY_ENVIRONMENT", "staging")

	cfg, err := ConfigFromEnv(WithEnvironment("overridden"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != "overridden" {
		t.Errorf("Environment = %q, want overridden (opts should win)", cfg.Environment)
	}
}

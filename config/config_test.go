package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func validConfig() *Config {
	return &Config{
		Region:      "us-west-2",
		WaitTimeout: time.Minute,
		LogLevel:    "info",
	}
}

func validStackConfig() *StackConfig {
	return &StackConfig{
		QueueName:         "s3demo-queue",
		TopicName:         "s3demo-topic",
		DisplayName:       "My First Topic Yeah",
		VisibilityTimeout: 300 * time.Second,
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config to pass validation, got: %v", err)
	}
	if cfg.Level() != log.InfoLevel {
		t.Errorf("expected info level, got %v", cfg.Level())
	}
}

func TestEmptyRegionAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Region = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected empty region to defer to the SDK chain, got: %v", err)
	}
}

func TestDefaultLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if cfg.Level() != log.WarnLevel {
		t.Errorf("expected warn level by default, got %v", cfg.Level())
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "chatty"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestInvalidEndpoint(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint string
	}{
		{"no scheme", "localhost:4566"},
		{"s3 scheme", "s3://bucket"},
		{"no host", "http://"},
		{"file scheme", "file:///tmp"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Endpoint = tc.endpoint
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected error for invalid endpoint: %s", tc.endpoint)
			}
		})
	}
}

func TestValidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"http://localhost:4566", "https://s3.example.com"} {
		t.Run(endpoint, func(t *testing.T) {
			cfg := validConfig()
			cfg.Endpoint = endpoint
			if err := cfg.Validate(); err != nil {
				t.Errorf("expected valid endpoint %s to pass, got: %v", endpoint, err)
			}
		})
	}
}

func TestInvalidWaitTimeout(t *testing.T) {
	testCases := []time.Duration{0, 500 * time.Millisecond, -time.Second}
	for _, timeout := range testCases {
		t.Run(timeout.String(), func(t *testing.T) {
			cfg := validConfig()
			cfg.WaitTimeout = timeout
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected error for invalid wait timeout: %v", timeout)
			}
		})
	}
}

func TestValidStackConfig(t *testing.T) {
	cfg := validStackConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid stack config to pass validation, got: %v", err)
	}
}

func TestMissingStackNames(t *testing.T) {
	cfg := validStackConfig()
	cfg.QueueName = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing queue name")
	}

	cfg = validStackConfig()
	cfg.TopicName = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing topic name")
	}
}

func TestInvalidVisibilityTimeout(t *testing.T) {
	testCases := []time.Duration{-time.Second, 13 * time.Hour, 1500 * time.Millisecond}
	for _, timeout := range testCases {
		t.Run(timeout.String(), func(t *testing.T) {
			cfg := validStackConfig()
			cfg.VisibilityTimeout = timeout
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected error for invalid visibility timeout: %v", timeout)
			}
		})
	}
}

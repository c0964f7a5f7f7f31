// Package config holds the runtime settings shared by the s3demo binaries.
// Values are populated from command-line flags in each main package and
// checked with Validate before any AWS client is constructed.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds the settings for a single s3demo invocation.
type Config struct {
	Region       string        // AWS region; empty defers to the SDK's default chain
	Profile      string        // Shared config profile; empty uses the default profile
	Endpoint     string        // Optional endpoint override (http(s)://host[:port])
	UsePathStyle bool          // Address buckets as host/bucket instead of bucket.host
	WaitTimeout  time.Duration // Upper bound for the bucket-exists waiter
	LogLevel     string        // logrus level name

	// Internal fields
	level log.Level // Level parsed from LogLevel
}

// Level returns the log level parsed by Validate.
func (c *Config) Level() log.Level {
	return c.level
}

// Validate checks every field and resolves derived values.
func (c *Config) Validate() error {
	if c.Endpoint != "" {
		if err := validateEndpoint(c.Endpoint); err != nil {
			return err
		}
	}

	if c.WaitTimeout < time.Second {
		return fmt.Errorf("wait timeout must be at least 1 second")
	}

	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	c.level = level

	return nil
}

// StackConfig holds the names and settings of the notification stack
// provisioned by s3demo-stack.
type StackConfig struct {
	QueueName         string
	TopicName         string
	DisplayName       string
	VisibilityTimeout time.Duration
}

// Validate checks the stack settings against the limits SQS and SNS enforce.
func (c *StackConfig) Validate() error {
	if c.QueueName == "" {
		return fmt.Errorf("queue name is required")
	}
	if len(c.QueueName) > 80 {
		return fmt.Errorf("queue name must be at most 80 characters")
	}

	if c.TopicName == "" {
		return fmt.Errorf("topic name is required")
	}
	if len(c.TopicName) > 256 {
		return fmt.Errorf("topic name must be at most 256 characters")
	}

	// SQS accepts whole seconds between 0 and 12 hours
	if c.VisibilityTimeout < 0 || c.VisibilityTimeout > 12*time.Hour {
		return fmt.Errorf("visibility timeout must be between 0s and 12h")
	}
	if c.VisibilityTimeout%time.Second != 0 {
		return fmt.Errorf("visibility timeout must be a whole number of seconds")
	}

	return nil
}

func validateEndpoint(endpoint string) error {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return fmt.Errorf("endpoint must start with http:// or https://")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint must include a host")
	}
	return nil
}

package notification

import (
	"fmt"
	"time"

	"medication-alerts/internal/common/validation"
)

type Config struct {
	FromEmail   string
	MaxAttempts int
	RetryDelay  time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		RetryDelay:  5 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	if !validation.ValidateEmail(c.FromEmail) {
		return fmt.Errorf("from email %q is not a bare address", c.FromEmail)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	return nil
}

package errortrigger

import (
	"fmt"
	"time"
)

// TriggerConfig controls when an aggregator fires.
type TriggerConfig struct {
	// Window bounds how far back failures count toward Threshold. Zero means
	// failures never expire.
	Window time.Duration
	// Threshold is the number of retained failures that fires. Zero means 1.
	Threshold int
	// Throttle suppresses handler calls for fires that happen within this
	// long after the previous delivered fire. Zero disables throttling.
	Throttle time.Duration
}

// ConfigurationError reports an invalid binding or trigger configuration.
type ConfigurationError struct {
	Binding string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Binding == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("binding %q: invalid %s: %s", e.Binding, e.Field, e.Reason)
}

// Validate rejects negative durations and thresholds.
func (c TriggerConfig) Validate() error {
	if c.Threshold < 0 {
		return &ConfigurationError{Field: "threshold", Reason: fmt.Sprintf("must be at least 1, got %d", c.Threshold)}
	}
	if c.Window < 0 {
		return &ConfigurationError{Field: "window", Reason: fmt.Sprintf("must not be negative, got %s", c.Window)}
	}
	if c.Throttle < 0 {
		return &ConfigurationError{Field: "throttle", Reason: fmt.Sprintf("must not be negative, got %s", c.Throttle)}
	}
	return nil
}

func (c TriggerConfig) threshold() int {
	if c.Threshold <= 0 {
		return 1
	}
	return c.Threshold
}

package operations

import (
	"time"

	"slotledger/internal/config"
)

// Default step timeouts
const (
	DefaultStepTimeout      = 2 * time.Minute
	DefaultExtractTimeout   = 2 * time.Minute
	DefaultStoreTimeout     = 30 * time.Second
	DefaultAggregateTimeout = 5 * time.Minute
	DefaultClassifyTimeout  = 5 * time.Minute
)

// Config represents the run execution configuration
type Config struct {
	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// CreateStoreDir creates the snapshot directory before the first write
	CreateStoreDir bool `json:"create_store_dir"`
}

// NewConfig returns the default run configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDExtract:   DefaultExtractTimeout,
			StepIDStore:     DefaultStoreTimeout,
			StepIDAggregate: DefaultAggregateTimeout,
			StepIDClassify:  DefaultClassifyTimeout,
		},
		CreateStoreDir: true,
	}
}

// ConfigFrom derives the run configuration from the application config.
// The extract step gets the browser timeout plus headroom for parsing.
func ConfigFrom(cfg *config.Config) *Config {
	c := NewConfig()
	c.CreateStoreDir = cfg.Store.CreateDir
	if cfg.Scraper.Timeout > 0 {
		c.SetStepTimeout(StepIDExtract, cfg.Scraper.Timeout+30*time.Second)
	}
	return c
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

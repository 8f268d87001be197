package monitor

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default timing of the poll cycle
const (
	// DefaultRefreshInterval controls how often the current file label is refreshed
	DefaultRefreshInterval = 100 * time.Millisecond

	// DefaultFullRefreshEvery controls how many ticks pass between full progress refreshes
	DefaultFullRefreshEvery = 10

	// DefaultRemoveDelay is the time after which a finished job is removed from the monitor
	DefaultRemoveDelay = 1500 * time.Millisecond
)

// Config holds the poll cycle timing
type Config struct {
	RefreshInterval  time.Duration `validate:"min=1ms"`
	FullRefreshEvery int           `validate:"min=1"`
	RemoveDelay      time.Duration `validate:"min=0s"`
}

// DefaultConfig returns the default poll cycle timing
func DefaultConfig() Config {
	return Config{
		RefreshInterval:  DefaultRefreshInterval,
		FullRefreshEvery: DefaultFullRefreshEvery,
		RemoveDelay:      DefaultRemoveDelay,
	}
}

// FullRefreshInterval returns the wall time between two full refreshes
func (c Config) FullRefreshInterval() time.Duration {
	return c.RefreshInterval * time.Duration(c.FullRefreshEvery)
}

// Validate checks the configuration using go-playground/validator.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid monitor config: %w", err)
	}
	return nil
}

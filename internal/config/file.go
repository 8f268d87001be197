package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/monitor"
)

// Environment variables that override the config file
const (
	EnvRefreshInterval  = "JOBMON_REFRESH_INTERVAL"
	EnvFullRefreshEvery = "JOBMON_FULL_REFRESH_EVERY"
	EnvRemoveDelay      = "JOBMON_REMOVE_DELAY"
	EnvMaxParallel      = "JOBMON_MAX_PARALLEL"
	EnvLogLevel         = "JOBMON_LOG_LEVEL"
	EnvLogFormat        = "JOBMON_LOG_FORMAT"
	EnvMetricsAddr      = "JOBMON_METRICS_ADDR"
)

// Logging defaults
const (
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "console"
	DefaultProgressLogInterval = "1s"
)

// File is the TOML configuration used by the headless CLI
type File struct {
	Monitor MonitorSection `toml:"monitor"`
	Jobs    JobsSection    `toml:"jobs"`
	Logging LoggingSection `toml:"logging"`
	Metrics MetricsSection `toml:"metrics"`
}

// MonitorSection holds the poll cycle timing. Durations use Go syntax, e.g. "100ms".
type MonitorSection struct {
	RefreshInterval  string `toml:"refresh_interval" validate:"required"`
	FullRefreshEvery int    `toml:"full_refresh_every" validate:"min=1"`
	RemoveDelay      string `toml:"remove_delay" validate:"required"`
}

type JobsSection struct {
	MaxParallel int `toml:"max_parallel" validate:"min=1,max=10"`
}

type LoggingSection struct {
	Level               string `toml:"level" validate:"oneof=trace debug info warn error"`
	Format              string `toml:"format" validate:"oneof=console json"`
	ProgressLogInterval string `toml:"progress_log_interval"` // minimum gap between partial progress log lines
}

type MetricsSection struct {
	Address string `toml:"address"` // e.g. ":9090", empty disables the endpoint
}

// NewDefaultFile returns a configuration with default values
func NewDefaultFile() *File {
	return &File{
		Monitor: MonitorSection{
			RefreshInterval:  monitor.DefaultRefreshInterval.String(),
			FullRefreshEvery: monitor.DefaultFullRefreshEvery,
			RemoveDelay:      monitor.DefaultRemoveDelay.String(),
		},
		Jobs: JobsSection{
			MaxParallel: filejob.DefaultMaxParallel,
		},
		Logging: LoggingSection{
			Level:               DefaultLogLevel,
			Format:              DefaultLogFormat,
			ProgressLogInterval: DefaultProgressLogInterval,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path skips the file.
func LoadFromFile(path string) (*File, error) {
	file := NewDefaultFile()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(file)

	if err := file.Validate(); err != nil {
		return nil, err
	}
	return file, nil
}

// applyEnvOverrides applies environment variable overrides to the file
func applyEnvOverrides(file *File) {
	if v := os.Getenv(EnvRefreshInterval); v != "" {
		file.Monitor.RefreshInterval = v
	}
	if v := os.Getenv(EnvFullRefreshEvery); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			file.Monitor.FullRefreshEvery = n
		}
	}
	if v := os.Getenv(EnvRemoveDelay); v != "" {
		file.Monitor.RemoveDelay = v
	}
	if v := os.Getenv(EnvMaxParallel); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			file.Jobs.MaxParallel = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		file.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		file.Logging.Format = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		file.Metrics.Address = v
	}
}

// Validate checks field ranges and that every duration parses
func (f *File) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := f.MonitorConfig(); err != nil {
		return err
	}
	if _, err := f.ProgressLogInterval(); err != nil {
		return err
	}
	return nil
}

// MonitorConfig converts the [monitor] table into a validated monitor.Config
func (f *File) MonitorConfig() (monitor.Config, error) {
	refresh, err := time.ParseDuration(f.Monitor.RefreshInterval)
	if err != nil {
		return monitor.Config{}, fmt.Errorf("invalid monitor.refresh_interval %q: %w", f.Monitor.RefreshInterval, err)
	}
	removeDelay, err := time.ParseDuration(f.Monitor.RemoveDelay)
	if err != nil {
		return monitor.Config{}, fmt.Errorf("invalid monitor.remove_delay %q: %w", f.Monitor.RemoveDelay, err)
	}

	cfg := monitor.Config{
		RefreshInterval:  refresh,
		FullRefreshEvery: f.Monitor.FullRefreshEvery,
		RemoveDelay:      removeDelay,
	}
	if err := cfg.Validate(); err != nil {
		return monitor.Config{}, err
	}
	return cfg, nil
}

// ProgressLogInterval returns the throttle for partial progress log lines.
// An empty value logs every partial update.
func (f *File) ProgressLogInterval() (time.Duration, error) {
	if f.Logging.ProgressLogInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Logging.ProgressLogInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid logging.progress_log_interval %q: %w", f.Logging.ProgressLogInterval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("logging.progress_log_interval must not be negative: %s", d)
	}
	return d, nil
}

// Encode renders the configuration as TOML
func (f *File) Encode() ([]byte, error) {
	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

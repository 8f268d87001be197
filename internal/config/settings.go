package config

import (
	"time"

	"fyne.io/fyne/v2"

	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/monitor"
)

// Settings keys for Fyne preferences
const (
	KeyRefreshInterval  = "refresh_interval_ms"
	KeyFullRefreshEvery = "full_refresh_every"
	KeyRemoveDelay      = "finished_job_remove_ms"
	KeyMaxParallel      = "max_parallel_jobs"
	KeyLanguage         = "app_language"
)

// DefaultLanguage follows the system locale
const DefaultLanguage = "system"

// Bounds for user editable values
const (
	MinRefreshIntervalMs = 10
	MaxRefreshIntervalMs = 5000
	MaxFullRefreshEvery  = 100
	MaxRemoveDelayMs     = 60000
)

// Settings manages application configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetRefreshInterval returns how often job progress is polled
func (s *Settings) GetRefreshInterval() time.Duration {
	value := s.app.Preferences().Int(KeyRefreshInterval)
	if value <= 0 {
		value = int(monitor.DefaultRefreshInterval / time.Millisecond)
		s.SetRefreshInterval(monitor.DefaultRefreshInterval)
	}
	return time.Duration(value) * time.Millisecond
}

// SetRefreshInterval sets the poll interval, clamped to a sane range
func (s *Settings) SetRefreshInterval(d time.Duration) {
	ms := clamp(int(d/time.Millisecond), MinRefreshIntervalMs, MaxRefreshIntervalMs)
	s.app.Preferences().SetInt(KeyRefreshInterval, ms)
}

// GetFullRefreshEvery returns how many polls pass between full progress refreshes
func (s *Settings) GetFullRefreshEvery() int {
	value := s.app.Preferences().Int(KeyFullRefreshEvery)
	if value <= 0 {
		s.SetFullRefreshEvery(monitor.DefaultFullRefreshEvery)
		return monitor.DefaultFullRefreshEvery
	}
	return value
}

// SetFullRefreshEvery sets the full refresh period in polls
func (s *Settings) SetFullRefreshEvery(n int) {
	s.app.Preferences().SetInt(KeyFullRefreshEvery, clamp(n, 1, MaxFullRefreshEvery))
}

// GetRemoveDelay returns how long finished jobs stay visible. Zero is a valid value.
func (s *Settings) GetRemoveDelay() time.Duration {
	ms := s.app.Preferences().IntWithFallback(KeyRemoveDelay, int(monitor.DefaultRemoveDelay/time.Millisecond))
	return time.Duration(clamp(ms, 0, MaxRemoveDelayMs)) * time.Millisecond
}

// SetRemoveDelay sets how long finished jobs stay visible
func (s *Settings) SetRemoveDelay(d time.Duration) {
	ms := clamp(int(d/time.Millisecond), 0, MaxRemoveDelayMs)
	s.app.Preferences().SetInt(KeyRemoveDelay, ms)
}

// GetMaxParallelJobs returns the maximum number of jobs running at once
func (s *Settings) GetMaxParallelJobs() int {
	value := s.app.Preferences().Int(KeyMaxParallel)
	if value <= 0 {
		s.SetMaxParallelJobs(filejob.DefaultMaxParallel)
		return filejob.DefaultMaxParallel
	}
	return value
}

// SetMaxParallelJobs sets the maximum number of jobs running at once
func (s *Settings) SetMaxParallelJobs(count int) {
	s.app.Preferences().SetInt(KeyMaxParallel, clamp(count, 1, filejob.MaxParallelLimit))
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ru":     "Русский",
		"pt":     "Português",
	}
}

// MonitorConfig builds the monitor timing from the stored preferences
func (s *Settings) MonitorConfig() monitor.Config {
	return monitor.Config{
		RefreshInterval:  s.GetRefreshInterval(),
		FullRefreshEvery: s.GetFullRefreshEvery(),
		RemoveDelay:      s.GetRemoveDelay(),
	}
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

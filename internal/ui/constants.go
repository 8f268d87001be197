package ui

import "time"

// UI-wide constants to avoid magic numbers/strings scattered across the codebase.

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconAdd      = "+"
	IconStopAll  = "■"
)

// Text fragments
const (
	MiddleDotSeparator  = " · "
	ProgressLabelFormat = "%d%%"
)

// Layout sizing (JobRow / lists)
const (
	StatusLabelWidth  float32 = 96
	PercentLabelWidth float32 = 48

	RowMinWidth  float32 = 400
	RowMinHeight float32 = 72
)

// Settings dialog sizing
const (
	SettingsDialogWidth  float32 = 460
	SettingsDialogHeight float32 = 360
)

// Debounce durations
const (
	// UIUpdateDebounce bounds how often partial progress updates reach a row
	UIUpdateDebounce = 100 * time.Millisecond
)

// Demo jobs submitted from the toolbar
const (
	DemoJobFiles    = 12
	DemoJobFileSize = 8 * 1024 * 1024
	DemoBytesPerSec = 16 * 1024 * 1024
	DemoChunkSize   = 256 * 1024
)

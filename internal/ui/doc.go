package ui

// Package ui contains the Fyne desktop front end of the job monitor. JobPanel
// listens to the monitor and mirrors the registered jobs into a bound list of
// rows; RootUI lays out the window, the toolbar and the settings dialog. All
// UI strings are localized via Localization.

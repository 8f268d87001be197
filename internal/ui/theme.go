package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CompactTheme keeps job rows dense: reduced padding and text sizes, and
// distinct colors for finished, interrupted and paused jobs.
type CompactTheme struct{}

// NewCompactTheme returns the theme installed by main
func NewCompactTheme() fyne.Theme {
	return &CompactTheme{}
}

var (
	// Job state colors used through label importance
	colorFinished    = color.RGBA{R: 46, G: 160, B: 67, A: 255}
	colorInterrupted = color.RGBA{R: 183, G: 28, B: 28, A: 255}
	colorPaused      = color.RGBA{R: 255, G: 160, B: 0, A: 255}
	colorPrimary     = color.RGBA{R: 25, G: 118, B: 210, A: 255}
)

// compactSizes overrides default theme sizes
var compactSizes = map[fyne.ThemeSizeName]float32{
	theme.SizeNamePadding:         3,
	theme.SizeNameInnerPadding:    6,
	theme.SizeNameLineSpacing:     2,
	theme.SizeNameScrollBar:       12,
	theme.SizeNameText:            13,
	theme.SizeNameHeadingText:     16,
	theme.SizeNameSubHeadingText:  13,
	theme.SizeNameCaptionText:     10,
	theme.SizeNameInputRadius:     3,
	theme.SizeNameSelectionRadius: 2,
}

// Color maps the status colors onto job states and defers the rest
func (t *CompactTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameSuccess:
		return colorFinished
	case theme.ColorNameError:
		return colorInterrupted
	case theme.ColorNameWarning:
		return colorPaused
	case theme.ColorNamePrimary:
		return colorPrimary
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t *CompactTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CompactTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size applies compactSizes over the default theme
func (t *CompactTheme) Size(name fyne.ThemeSizeName) float32 {
	if size, ok := compactSizes[name]; ok {
		return size
	}
	return theme.DefaultTheme().Size(name)
}

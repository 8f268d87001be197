package ui

import (
	"slices"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/jobmon/internal/config"
)

// SettingsDialog represents the settings configuration dialog
type SettingsDialog struct {
	settings     *config.Settings
	localization *Localization
	window       fyne.Window
	dialog       *dialog.ConfirmDialog
	onSaved      func()

	// UI components
	refreshEntry     *widget.Entry
	fullRefreshEntry *widget.Entry
	removeDelayEntry *widget.Entry
	maxParallelEntry *widget.Entry
	languageSelect   *widget.Select
}

// ShowSettingsDialog opens the settings dialog; onSaved runs after the values are stored
func ShowSettingsDialog(window fyne.Window, settings *config.Settings, localization *Localization, onSaved func()) *SettingsDialog {
	sd := NewSettingsDialog(settings, localization, window)
	sd.onSaved = onSaved
	sd.Show()
	return sd
}

// NewSettingsDialog creates a new settings dialog
func NewSettingsDialog(settings *config.Settings, localization *Localization, window fyne.Window) *SettingsDialog {
	sd := &SettingsDialog{
		settings:     settings,
		localization: localization,
		window:       window,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

// createUI creates the settings dialog UI
func (sd *SettingsDialog) createUI() {
	sd.refreshEntry = widget.NewEntry()
	sd.refreshEntry.SetPlaceHolder(strconv.Itoa(config.MinRefreshIntervalMs) + "-" + strconv.Itoa(config.MaxRefreshIntervalMs))
	sd.refreshEntry.Validator = intValidator

	sd.fullRefreshEntry = widget.NewEntry()
	sd.fullRefreshEntry.SetPlaceHolder("1-" + strconv.Itoa(config.MaxFullRefreshEvery))
	sd.fullRefreshEntry.Validator = intValidator

	sd.removeDelayEntry = widget.NewEntry()
	sd.removeDelayEntry.SetPlaceHolder("0-" + strconv.Itoa(config.MaxRemoveDelayMs))
	sd.removeDelayEntry.Validator = intValidator

	sd.maxParallelEntry = widget.NewEntry()
	sd.maxParallelEntry.SetPlaceHolder("1-10")
	sd.maxParallelEntry.Validator = intValidator

	languageOptions := make([]string, 0, len(sd.settings.GetLanguageOptions()))
	for code := range sd.settings.GetLanguageOptions() {
		languageOptions = append(languageOptions, code)
	}
	slices.Sort(languageOptions)
	sd.languageSelect = widget.NewSelect(languageOptions, nil)

	form := widget.NewForm(
		widget.NewFormItem(sd.localization.GetText(KeyRefreshInterval), sd.refreshEntry),
		widget.NewFormItem(sd.localization.GetText(KeyFullRefreshEvery), sd.fullRefreshEntry),
		widget.NewFormItem(sd.localization.GetText(KeyRemoveDelay), sd.removeDelayEntry),
		widget.NewFormItem(sd.localization.GetText(KeyMaxParallel), sd.maxParallelEntry),
		widget.NewFormItem(sd.localization.GetText(KeyLanguage), sd.languageSelect),
	)

	sd.dialog = dialog.NewCustomConfirm(
		sd.localization.GetText(KeySettings),
		sd.localization.GetText(KeySave),
		sd.localization.GetText(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(SettingsDialogWidth, SettingsDialogHeight))
}

// loadCurrentSettings loads current settings into the UI
func (sd *SettingsDialog) loadCurrentSettings() {
	sd.refreshEntry.SetText(strconv.Itoa(int(sd.settings.GetRefreshInterval() / time.Millisecond)))
	sd.fullRefreshEntry.SetText(strconv.Itoa(sd.settings.GetFullRefreshEvery()))
	sd.removeDelayEntry.SetText(strconv.Itoa(int(sd.settings.GetRemoveDelay() / time.Millisecond)))
	sd.maxParallelEntry.SetText(strconv.Itoa(sd.settings.GetMaxParallelJobs()))
	sd.languageSelect.SetSelected(sd.settings.GetLanguage())
}

// onSave stores the entered values. Out of range numbers are clamped by Settings.
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}
	sd.apply()

	if sd.onSaved != nil {
		sd.onSaved()
	}

	dialog.ShowInformation(
		sd.localization.GetText(KeySettings),
		sd.localization.GetText(KeySettingsSaved)+"\n"+sd.localization.GetText(KeyRestartNotice),
		sd.window,
	)
}

// apply writes the valid entries to the settings; blank or invalid entries keep the stored value
func (sd *SettingsDialog) apply() {
	if ms, ok := parseEntry(sd.refreshEntry); ok {
		sd.settings.SetRefreshInterval(time.Duration(ms) * time.Millisecond)
	}
	if n, ok := parseEntry(sd.fullRefreshEntry); ok {
		sd.settings.SetFullRefreshEvery(n)
	}
	if ms, ok := parseEntry(sd.removeDelayEntry); ok {
		sd.settings.SetRemoveDelay(time.Duration(ms) * time.Millisecond)
	}
	if n, ok := parseEntry(sd.maxParallelEntry); ok {
		sd.settings.SetMaxParallelJobs(n)
	}
	if sd.languageSelect.Selected != "" {
		sd.settings.SetLanguage(sd.languageSelect.Selected)
	}
}

func parseEntry(entry *widget.Entry) (int, bool) {
	if entry.Text == "" {
		return 0, false
	}
	n, err := strconv.Atoi(entry.Text)
	if err != nil {
		return 0, false
	}
	return n, true
}

func intValidator(text string) error {
	if text == "" {
		return nil
	}
	_, err := strconv.Atoi(text)
	return err
}

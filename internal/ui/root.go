package ui

import (
	"fmt"
	"slices"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ytget/jobmon/internal/config"
	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/model"
	"github.com/ytget/jobmon/internal/monitor"
)

// demoKinds are cycled through by the "new demo job" action
var demoKinds = []model.JobKind{model.JobKindCopy, model.JobKindMove, model.JobKindDelete}

// RootUI represents the main UI structure
type RootUI struct {
	window       fyne.Window
	settings     *config.Settings
	localization *Localization
	monitor      *monitor.Monitor
	jobs         filejob.Manager
	logger       zerolog.Logger

	panel         *JobPanel
	countListener *monitor.ListenerFuncs

	newJobBtn  *widget.Button
	stopAllBtn *widget.Button
	countLabel *widget.Label
	emptyLabel *widget.Label
	jobList    *widget.List

	demoCount int
}

// NewRootUI creates the main window content and attaches its listeners to mon
func NewRootUI(window fyne.Window, settings *config.Settings, mon *monitor.Monitor, jobs filejob.Manager, logger zerolog.Logger) *RootUI {
	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	ui := &RootUI{
		window:       window,
		settings:     settings,
		localization: localization,
		monitor:      mon,
		jobs:         jobs,
		logger:       logger.With().Str("component", "ui").Logger(),
	}

	window.SetTitle(localization.GetText(KeyAppTitle))

	ui.panel = NewJobPanel(localization, jobs, logger)
	ui.panel.SetErrorHandler(ui.showError)

	ui.countListener = &monitor.ListenerFuncs{
		OnAdded:   func(monitor.Job) { ui.refreshCount() },
		OnRemoved: func(monitor.Job) { ui.refreshCount() },
	}

	ui.setupUI()

	mon.AddListener(ui.panel)
	mon.AddListener(ui.countListener)
	return ui
}

// Panel returns the job list listener
func (ui *RootUI) Panel() *JobPanel {
	return ui.panel
}

// Detach unregisters the UI listeners from the monitor
func (ui *RootUI) Detach() {
	ui.monitor.RemoveListener(ui.panel)
	ui.monitor.RemoveListener(ui.countListener)
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	ui.createMenu()

	ui.newJobBtn = widget.NewButton(IconAdd+" "+ui.localization.GetText(KeyNewDemoJob), ui.onNewDemoJob)
	ui.newJobBtn.Importance = widget.HighImportance

	ui.stopAllBtn = widget.NewButton(IconStopAll+" "+ui.localization.GetText(KeyStopAll), ui.onStopAll)

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	ui.countLabel = widget.NewLabel("")
	ui.emptyLabel = widget.NewLabel(ui.localization.GetText(KeyNoJobs))
	ui.emptyLabel.Alignment = fyne.TextAlignCenter

	toolbar := container.NewBorder(nil, nil,
		container.NewHBox(settingsBtn, ui.newJobBtn, ui.stopAllBtn),
		ui.countLabel,
	)

	ui.jobList = ui.panel.Widget()

	content := container.NewBorder(
		container.NewVBox(toolbar, widget.NewSeparator()),
		nil,
		nil,
		nil,
		container.NewStack(ui.jobList, ui.emptyLabel),
	)

	ui.window.SetContent(content)
	ui.updateCount(0)
}

// createMenu creates the application menu
func (ui *RootUI) createMenu() {
	newJobItem := fyne.NewMenuItem(ui.localization.GetText(KeyNewDemoJob), ui.onNewDemoJob)
	stopAllItem := fyne.NewMenuItem(ui.localization.GetText(KeyStopAll), ui.onStopAll)
	settingsItem := fyne.NewMenuItem(ui.localization.GetText(KeySettings), ui.onShowSettings)

	languageMenu := fyne.NewMenu(ui.localization.GetText(KeyLanguage))

	available := ui.localization.GetAvailableLanguages()
	codes := make([]string, 0, len(available))
	for code := range available {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	for _, code := range codes {
		langItem := fyne.NewMenuItem(available[code], func() {
			ui.onLanguageChange(code)
		})
		langItem.Checked = ui.localization.GetCurrentLanguage() == code
		languageMenu.Items = append(languageMenu.Items, langItem)
	}

	mainMenu := fyne.NewMainMenu(
		fyne.NewMenu(ui.localization.GetText(KeyFile), newJobItem, stopAllItem, fyne.NewMenuItemSeparator(), settingsItem),
		languageMenu,
	)

	ui.window.SetMainMenu(mainMenu)
}

// onLanguageChange handles language change
func (ui *RootUI) onLanguageChange(langCode string) {
	ui.localization.SetLanguage(langCode)
	ui.settings.SetLanguage(langCode)

	ui.refreshUITexts()
	// Recreate menu to update checkmarks
	ui.createMenu()
}

// refreshUITexts updates all UI texts with current language
func (ui *RootUI) refreshUITexts() {
	ui.window.SetTitle(ui.localization.GetText(KeyAppTitle))

	ui.newJobBtn.SetText(IconAdd + " " + ui.localization.GetText(KeyNewDemoJob))
	ui.stopAllBtn.SetText(IconStopAll + " " + ui.localization.GetText(KeyStopAll))
	ui.emptyLabel.SetText(ui.localization.GetText(KeyNoJobs))
	ui.updateCount(ui.monitor.JobCount())

	// Rows pick up the new language on refresh
	ui.jobList.Refresh()
}

// onNewDemoJob submits a simulated job, cycling through the job kinds
func (ui *RootUI) onNewDemoJob() {
	ui.demoCount++
	kind := demoKinds[(ui.demoCount-1)%len(demoKinds)]
	name := fmt.Sprintf("demo-%d", ui.demoCount)

	plan := filejob.SimulatedPlan(name, kind, DemoJobFiles, DemoJobFileSize)
	limiter := rate.NewLimiter(rate.Limit(DemoBytesPerSec), DemoChunkSize)

	job, err := ui.jobs.Submit(plan, filejob.Simulate(DemoChunkSize, limiter))
	if err != nil {
		ui.showError(ui.localization.GetText(KeyNewDemoJob), err)
		return
	}
	ui.logger.Debug().Str("job_id", job.ID()).Str("kind", kind.String()).Msg("Demo job submitted")
}

// onStopAll stops every queued and running job
func (ui *RootUI) onStopAll() {
	ui.jobs.StopAll()
}

// onShowSettings shows the settings dialog
func (ui *RootUI) onShowSettings() {
	ShowSettingsDialog(ui.window, ui.settings, ui.localization, func() {
		ui.jobs.SetMaxParallel(ui.settings.GetMaxParallelJobs())
	})
}

// refreshCount runs on the monitor goroutine
func (ui *RootUI) refreshCount() {
	count := ui.monitor.JobCount()
	fyne.Do(func() {
		ui.updateCount(count)
	})
}

func (ui *RootUI) updateCount(count int) {
	ui.countLabel.SetText(fmt.Sprintf(ui.localization.GetText(KeyJobsCount), count))
	if count == 0 {
		ui.emptyLabel.Show()
	} else {
		ui.emptyLabel.Hide()
	}
}

// showError reports a failed action; safe to call from any goroutine
func (ui *RootUI) showError(message string, err error) {
	fyne.Do(func() {
		dialog.ShowError(fmt.Errorf("%s: %w", message, err), ui.window)
	})
}

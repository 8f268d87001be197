package ui

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/jobmon/internal/config"
	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/model"
	"github.com/ytget/jobmon/internal/monitor"
)

// fakeManager registers submitted jobs without running them
type fakeManager struct {
	fakeController

	registry    filejob.Registry
	mu          sync.Mutex
	plans       []filejob.Plan
	stopAll     int
	maxParallel int
}

func (m *fakeManager) Submit(plan filejob.Plan, work filejob.WorkFunc) (*filejob.Job, error) {
	m.mu.Lock()
	m.plans = append(m.plans, plan)
	id := fmt.Sprintf("job-%d", len(m.plans))
	m.mu.Unlock()

	job := filejob.NewJob(id, plan)
	m.registry.AddJob(job)
	return job, nil
}

func (m *fakeManager) GetJob(string) (*filejob.Job, bool) { return nil, false }
func (m *fakeManager) AllJobs() []*filejob.Job          { return nil }

func (m *fakeManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAll++
}

func (m *fakeManager) SetMaxParallel(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxParallel = max
}

func newTestRootUI(t *testing.T) (*RootUI, *fakeManager) {
	t.Helper()
	app := test.NewApp()
	window := app.NewWindow("test")

	mon, err := monitor.New(monitor.Config{
		RefreshInterval:  10 * time.Millisecond,
		FullRefreshEvery: 2,
		RemoveDelay:      time.Hour,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mon.Close() })

	jobs := &fakeManager{registry: mon}
	ui := NewRootUI(window, config.NewSettings(app), mon, jobs, zerolog.Nop())
	return ui, jobs
}

func TestRootUINewDemoJobCyclesKinds(t *testing.T) {
	ui, jobs := newTestRootUI(t)

	for i := 0; i < 4; i++ {
		ui.onNewDemoJob()
	}

	jobs.mu.Lock()
	plans := append([]filejob.Plan(nil), jobs.plans...)
	jobs.mu.Unlock()

	require.Len(t, plans, 4)
	assert.Equal(t, model.JobKindCopy, plans[0].Kind)
	assert.Equal(t, model.JobKindMove, plans[1].Kind)
	assert.Equal(t, model.JobKindDelete, plans[2].Kind)
	assert.Equal(t, model.JobKindCopy, plans[3].Kind)
	assert.Equal(t, "demo-1", plans[0].Name)
	assert.Len(t, plans[0].Files, DemoJobFiles)
	assert.Equal(t, int64(DemoJobFiles*DemoJobFileSize), plans[0].TotalBytes)
}

func TestRootUITracksRegisteredJobs(t *testing.T) {
	ui, _ := newTestRootUI(t)

	assert.Equal(t, "Jobs: 0", ui.countLabel.Text)
	assert.True(t, ui.emptyLabel.Visible())

	ui.onNewDemoJob()
	ui.onNewDemoJob()

	require.Eventually(t, func() bool {
		return len(ui.Panel().Snapshots()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return ui.countLabel.Text == "Jobs: 2" && !ui.emptyLabel.Visible()
	}, 2*time.Second, 5*time.Millisecond)

	ui.Detach()
}

func TestRootUIStopAll(t *testing.T) {
	ui, jobs := newTestRootUI(t)

	ui.onStopAll()

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	assert.Equal(t, 1, jobs.stopAll)
}

func TestRootUILanguageChange(t *testing.T) {
	ui, _ := newTestRootUI(t)

	ui.onLanguageChange("ru")

	assert.Equal(t, "ru", ui.settings.GetLanguage())
	assert.Equal(t, "Монитор задач", ui.window.Title())
	assert.Equal(t, "Задач: 0", ui.countLabel.Text)
	assert.Contains(t, ui.stopAllBtn.Text, "Остановить все")
}

func TestSettingsDialogApply(t *testing.T) {
	app := test.NewApp()
	window := app.NewWindow("test")
	settings := config.NewSettings(app)

	sd := NewSettingsDialog(settings, NewLocalization(), window)
	sd.loadCurrentSettings()

	assert.Equal(t, "100", sd.refreshEntry.Text)
	assert.Equal(t, "10", sd.fullRefreshEntry.Text)

	sd.refreshEntry.SetText("250")
	sd.fullRefreshEntry.SetText("4")
	sd.removeDelayEntry.SetText("0")
	sd.maxParallelEntry.SetText("not a number")
	sd.languageSelect.SetSelected("pt")
	sd.apply()

	assert.Equal(t, 250*time.Millisecond, settings.GetRefreshInterval())
	assert.Equal(t, 4, settings.GetFullRefreshEvery())
	assert.Equal(t, time.Duration(0), settings.GetRemoveDelay())
	assert.Equal(t, filejob.DefaultMaxParallel, settings.GetMaxParallelJobs(), "invalid entries keep the stored value")
	assert.Equal(t, "pt", settings.GetLanguage())
}

func TestSettingsDialogSavedCallback(t *testing.T) {
	app := test.NewApp()
	window := app.NewWindow("test")
	settings := config.NewSettings(app)

	saved := false
	sd := NewSettingsDialog(settings, NewLocalization(), window)
	sd.onSaved = func() { saved = true }
	sd.loadCurrentSettings()
	sd.maxParallelEntry.SetText("5")

	sd.onSave(false)
	assert.False(t, saved)

	sd.onSave(true)
	assert.True(t, saved)
	assert.Equal(t, 5, settings.GetMaxParallelJobs())
}

func TestIntValidator(t *testing.T) {
	assert.NoError(t, intValidator(""))
	assert.NoError(t, intValidator("42"))
	assert.Error(t, intValidator("4x"))

	_, ok := parseEntry(widget.NewEntry())
	assert.False(t, ok)
}

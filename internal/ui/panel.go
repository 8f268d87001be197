package ui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/ytget/jobmon/internal/model"
	"github.com/ytget/jobmon/internal/monitor"
)

// JobController performs the row actions. *filejob.Service implements it.
type JobController interface {
	PauseJob(id string) error
	ResumeJob(id string) error
	StopJob(id string) error
}

// describedJob is implemented by jobs that carry display details
type describedJob interface {
	Name() string
	Kind() model.JobKind
	LastError() string
}

// JobSnapshot is the data of one row, captured on the monitor goroutine so
// the UI never calls into jobs.
type JobSnapshot struct {
	ID        string
	Name      string
	Kind      model.JobKind
	State     model.JobState
	Progress  model.Progress
	LastError string
}

// Title returns "kind: name", or the ID when the job carries no name
func (s JobSnapshot) Title() string {
	if s.Name == "" {
		return s.ID
	}
	if s.Kind == "" {
		return s.Name
	}
	return fmt.Sprintf("%s: %s", s.Kind, s.Name)
}

func snapshotOf(job monitor.Job) JobSnapshot {
	snap := JobSnapshot{
		ID:       job.ID(),
		State:    job.State(),
		Progress: job.Progress(),
	}
	if d, ok := job.(describedJob); ok {
		snap.Name = d.Name()
		snap.Kind = d.Kind()
		snap.LastError = d.LastError()
	}
	return snap
}

// rowState tracks the last partial update pushed for a job
type rowState struct {
	pushedAt time.Time
	state    model.JobState
}

// JobPanel is a monitor.Listener that mirrors the registered jobs into a
// bound list. Listener callbacks run on the monitor goroutine and hand their
// snapshots to the Fyne main goroutine with fyne.Do.
type JobPanel struct {
	rows         binding.UntypedList
	localization *Localization
	controller   JobController
	logger       zerolog.Logger
	onError      func(message string, err error)

	// Owned by the monitor goroutine
	partial map[string]rowState
}

// NewJobPanel creates an empty panel
func NewJobPanel(localization *Localization, controller JobController, logger zerolog.Logger) *JobPanel {
	return &JobPanel{
		rows:         binding.NewUntypedList(),
		localization: localization,
		controller:   controller,
		logger:       logger.With().Str("component", "ui").Logger(),
		partial:      make(map[string]rowState),
	}
}

// SetErrorHandler sets how failed row actions are reported
func (p *JobPanel) SetErrorHandler(onError func(message string, err error)) {
	p.onError = onError
}

// Rows returns the bound row data, one JobSnapshot per registered job
func (p *JobPanel) Rows() binding.UntypedList {
	return p.rows
}

// Snapshots returns the rows currently shown
func (p *JobPanel) Snapshots() []JobSnapshot {
	items, err := p.rows.Get()
	if err != nil {
		return nil
	}
	snaps := make([]JobSnapshot, 0, len(items))
	for _, item := range items {
		if snap, ok := item.(JobSnapshot); ok {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

// Widget returns a list bound to the rows
func (p *JobPanel) Widget() *widget.List {
	return widget.NewListWithData(p.rows,
		func() fyne.CanvasObject {
			row := NewJobRow(p.localization)
			row.SetCallbacks(p.onPauseResume, p.onStop)
			return row
		},
		func(item binding.DataItem, obj fyne.CanvasObject) {
			value, err := item.(binding.Untyped).Get()
			if err != nil {
				return
			}
			snap, ok := value.(JobSnapshot)
			if !ok {
				return
			}
			if row, ok := obj.(*JobRow); ok {
				row.Update(snap)
			}
		},
	)
}

// JobAdded implements monitor.Listener
func (p *JobPanel) JobAdded(job monitor.Job) {
	snap := snapshotOf(job)
	p.partial[snap.ID] = rowState{state: snap.State}

	fyne.Do(func() {
		if err := p.rows.Append(snap); err != nil {
			p.logger.Warn().Err(err).Str("job_id", snap.ID).Msg("Failed to add job row")
		}
	})
}

// JobRemoved implements monitor.Listener
func (p *JobPanel) JobRemoved(job monitor.Job) {
	id := job.ID()
	delete(p.partial, id)

	fyne.Do(func() {
		p.removeRow(id)
	})
}

// JobProgress implements monitor.Listener. Partial updates are debounced per
// job unless the job changed state since the last pushed update.
func (p *JobPanel) JobProgress(job monitor.Job, fullUpdate bool) {
	snap := snapshotOf(job)

	now := time.Now()
	last := p.partial[snap.ID]
	if !fullUpdate && last.state == snap.State && now.Sub(last.pushedAt) < UIUpdateDebounce {
		return
	}
	p.partial[snap.ID] = rowState{pushedAt: now, state: snap.State}

	fyne.Do(func() {
		p.updateRow(snap)
	})
}

// updateRow replaces the row of snap.ID; rows removed meanwhile are ignored
func (p *JobPanel) updateRow(snap JobSnapshot) {
	if i := p.indexOf(snap.ID); i >= 0 {
		if err := p.rows.SetValue(i, snap); err != nil {
			p.logger.Warn().Err(err).Str("job_id", snap.ID).Msg("Failed to update job row")
		}
	}
}

func (p *JobPanel) removeRow(id string) {
	items, err := p.rows.Get()
	if err != nil {
		return
	}
	kept := make([]any, 0, len(items))
	for _, item := range items {
		if snap, ok := item.(JobSnapshot); ok && snap.ID == id {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == len(items) {
		return
	}
	if err := p.rows.Set(kept); err != nil {
		p.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to remove job row")
	}
}

func (p *JobPanel) indexOf(id string) int {
	for i := 0; i < p.rows.Length(); i++ {
		value, err := p.rows.GetValue(i)
		if err != nil {
			continue
		}
		if snap, ok := value.(JobSnapshot); ok && snap.ID == id {
			return i
		}
	}
	return -1
}

func (p *JobPanel) onPauseResume(job JobSnapshot) {
	if p.controller == nil || job.ID == "" {
		return
	}

	var err error
	if job.State == model.JobStatePaused {
		err = p.controller.ResumeJob(job.ID)
	} else {
		err = p.controller.PauseJob(job.ID)
	}
	if err != nil {
		p.reportError(p.localization.GetText(KeyErrorPausingJob), job.ID, err)
	}
}

func (p *JobPanel) onStop(job JobSnapshot) {
	if p.controller == nil || job.ID == "" {
		return
	}
	if err := p.controller.StopJob(job.ID); err != nil {
		p.reportError(p.localization.GetText(KeyErrorStoppingJob), job.ID, err)
	}
}

func (p *JobPanel) reportError(message, id string, err error) {
	p.logger.Warn().Err(err).Str("job_id", id).Msg(message)
	if p.onError != nil {
		p.onError(message, err)
	}
}

var _ monitor.Listener = (*JobPanel)(nil)

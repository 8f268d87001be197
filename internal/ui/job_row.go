package ui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/jobmon/internal/model"
)

// JobRow is a compact row showing one job: name, state, progress bar,
// details (file · size · speed · ETA) and pause/stop buttons.
type JobRow struct {
	widget.BaseWidget

	job          JobSnapshot
	localization *Localization

	titleLabel   *widget.Label
	statusLabel  *widget.Label
	percentLabel *widget.Label
	detailLabel  *widget.Label
	progressBar  *widget.ProgressBar

	pauseBtn *widget.Button
	stopBtn  *widget.Button

	onPauseResume func(job JobSnapshot)
	onStop        func(job JobSnapshot)
}

// NewJobRow creates an empty row; list items are filled in by Update
func NewJobRow(localization *Localization) *JobRow {
	row := &JobRow{localization: localization}
	row.ExtendBaseWidget(row)
	row.createUI()
	return row
}

// SetCallbacks sets the button actions
func (r *JobRow) SetCallbacks(onPauseResume, onStop func(job JobSnapshot)) {
	r.onPauseResume = onPauseResume
	r.onStop = onStop
}

// Update shows job in the row. Must run on the Fyne main goroutine.
func (r *JobRow) Update(job JobSnapshot) {
	r.job = job
	p := job.Progress

	r.titleLabel.SetText(job.Title())

	r.statusLabel.Importance = stateImportance(job.State)
	r.statusLabel.SetText(r.localization.StateText(job.State))

	r.percentLabel.SetText(fmt.Sprintf(ProgressLabelFormat, p.Percent))
	r.progressBar.SetValue(float64(p.Percent) / 100)
	r.detailLabel.SetText(r.details(job))

	switch job.State {
	case model.JobStatePaused:
		r.pauseBtn.SetText(r.localization.GetText(KeyResume))
		r.pauseBtn.Enable()
	case model.JobStateRunning:
		r.pauseBtn.SetText(r.localization.GetText(KeyPause))
		r.pauseBtn.Enable()
	default:
		r.pauseBtn.SetText(r.localization.GetText(KeyPause))
		r.pauseBtn.Disable()
	}

	r.stopBtn.SetText(r.localization.GetText(KeyStop))
	if job.State.IsTerminal() {
		r.stopBtn.Disable()
	} else {
		r.stopBtn.Enable()
	}
}

// Job returns the snapshot the row currently shows
func (r *JobRow) Job() JobSnapshot {
	return r.job
}

// CreateRenderer implements fyne.Widget
func (r *JobRow) CreateRenderer() fyne.WidgetRenderer {
	status := container.NewGridWrap(fyne.NewSize(StatusLabelWidth, r.statusLabel.MinSize().Height), r.statusLabel)
	percent := container.NewGridWrap(fyne.NewSize(PercentLabelWidth, r.percentLabel.MinSize().Height), r.percentLabel)

	header := container.NewBorder(nil, nil, nil, container.NewHBox(status, r.pauseBtn, r.stopBtn), r.titleLabel)
	progress := container.NewBorder(nil, nil, nil, percent, r.progressBar)

	return widget.NewSimpleRenderer(container.NewVBox(header, progress, r.detailLabel))
}

// MinSize keeps rows readable in narrow windows
func (r *JobRow) MinSize() fyne.Size {
	size := r.BaseWidget.MinSize()
	return fyne.NewSize(max(size.Width, RowMinWidth), max(size.Height, RowMinHeight))
}

func (r *JobRow) createUI() {
	r.titleLabel = widget.NewLabel("")
	r.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	r.titleLabel.Truncation = fyne.TextTruncateEllipsis

	r.statusLabel = widget.NewLabel("")
	r.statusLabel.Alignment = fyne.TextAlignTrailing

	r.percentLabel = widget.NewLabel("")
	r.percentLabel.Alignment = fyne.TextAlignTrailing

	r.detailLabel = widget.NewLabel("")
	r.detailLabel.TextStyle = fyne.TextStyle{Monospace: true}
	r.detailLabel.Truncation = fyne.TextTruncateEllipsis

	r.progressBar = widget.NewProgressBar()
	r.progressBar.TextFormatter = func() string { return "" }

	r.pauseBtn = widget.NewButton(r.localization.GetText(KeyPause), func() {
		if r.onPauseResume != nil {
			r.onPauseResume(r.job)
		}
	})
	r.pauseBtn.Importance = widget.MediumImportance

	r.stopBtn = widget.NewButton(r.localization.GetText(KeyStop), func() {
		if r.onStop != nil {
			r.onStop(r.job)
		}
	})
	r.stopBtn.Importance = widget.DangerImportance
}

// details joins the file, size, speed and ETA of a job
func (r *JobRow) details(job JobSnapshot) string {
	p := job.Progress
	parts := make([]string, 0, 5)

	if name := p.GetCurrentFileName(); name != "" {
		parts = append(parts, name)
	}
	if p.FilesTotal > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", p.FilesDone, p.FilesTotal))
	}
	parts = append(parts, p.GetSizeString(), p.GetSpeedString(), p.GetETAString())

	if job.LastError != "" {
		parts = append(parts, job.LastError)
	}
	return strings.Join(parts, MiddleDotSeparator)
}

// stateImportance picks the label color of a job state
func stateImportance(state model.JobState) widget.Importance {
	switch state {
	case model.JobStateFinished:
		return widget.SuccessImportance
	case model.JobStateInterrupted:
		return widget.DangerImportance
	case model.JobStatePaused:
		return widget.WarningImportance
	case model.JobStateNotStarted:
		return widget.LowImportance
	default:
		return widget.MediumImportance
	}
}

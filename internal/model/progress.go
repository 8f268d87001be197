package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DashPlaceholder is shown for values that are not known yet
const DashPlaceholder = "—"

// Progress is a point-in-time snapshot of a file job's progress
type Progress struct {
	Percent        int           // 0 to 100
	CurrentFile    string        // path of the file being processed
	FilesDone      int           // files fully processed
	FilesTotal     int           // files planned, 0 if unknown
	BytesDone      int64         // bytes processed so far
	BytesTotal     int64         // bytes planned, 0 if unknown
	BytesPerSecond float64       // throughput measured at the last full update
	ETASec         int           // ETA in seconds, -1 if unknown
	Elapsed        time.Duration // time spent running, excluding pauses
	UpdatedAt      time.Time     // when the snapshot was computed
	FullUpdate     bool          // whether throughput and ETA were recomputed
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (p Progress) GetETAString() string {
	if p.ETASec <= 0 {
		return DashPlaceholder
	}

	hours := p.ETASec / 3600
	minutes := (p.ETASec % 3600) / 60
	seconds := p.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetSpeedString returns throughput in human readable form (e.g. "1.2 MB/s")
func (p Progress) GetSpeedString() string {
	if p.BytesPerSecond <= 0 {
		return DashPlaceholder
	}
	return humanize.Bytes(uint64(p.BytesPerSecond)) + "/s"
}

// GetSizeString returns "done / total" bytes, or just done when the total is unknown
func (p Progress) GetSizeString() string {
	done := humanize.Bytes(uint64(max(p.BytesDone, 0)))
	if p.BytesTotal <= 0 {
		return done
	}
	return done + " / " + humanize.Bytes(uint64(p.BytesTotal))
}

// GetCurrentFileName returns the base name of the current file
func (p Progress) GetCurrentFileName() string {
	if p.CurrentFile == "" {
		return ""
	}
	// Support both / and \ separators, jobs may describe remote paths
	parts := strings.FieldsFunc(p.CurrentFile, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(parts) == 0 {
		return p.CurrentFile
	}
	return parts[len(parts)-1]
}

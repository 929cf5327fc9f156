package cleanup

import (
	"fmt"
	"time"

	"quoll/internal/exitcodes"
)

// Result summarises one run.
type Result struct {
	RunID string

	FilesDeleted   int
	FoldersDeleted int
	Pruned         int
	BytesFreed     int64

	// DryRunItems and DryRunBytes count what a real run would have removed.
	DryRunItems int
	DryRunBytes int64

	Missing       int
	Failed        int
	SafetyBlocked int

	Declined    bool
	Interrupted bool
	ScanErr     error

	States  []State
	Elapsed time.Duration
}

// Deleted is the number of entries removed in both phases.
func (r *Result) Deleted() int {
	return r.FilesDeleted + r.FoldersDeleted + r.Pruned
}

// ExitCode maps the outcome to a process exit status.
func (r *Result) ExitCode() int {
	switch {
	case r.Interrupted:
		return exitcodes.Interrupted
	case r.ScanErr != nil:
		return exitcodes.Failure
	case r.SafetyBlocked > 0:
		return exitcodes.SafetyViolation
	case r.Failed > 0:
		return exitcodes.ItemErrors
	default:
		return exitcodes.Success
	}
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

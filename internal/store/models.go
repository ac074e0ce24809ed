package store

import "time"

// Run records one fleet operation: a profile export, an import sweep, a
// validation pass or a combined apply.
type Run struct {
	ID           int64
	Kind         string // "export", "import", "validate", "apply"
	GroupName    string
	Source       string // source controller address, empty for import-only runs
	ProfilePath  string // exported or imported profile file
	TargetCount  int
	Succeeded    int
	Failed       int
	Status       string // "running", "success", "partial", "failed"
	ErrorMessage string
	StartTime    time.Time
	EndTime      time.Time
}

// TargetResult records the outcome for one controller within a run
type TargetResult struct {
	ID        int64
	RunID     int64
	Position  int // preserves the supplied target order
	Address   string
	OK        bool
	JobID     string
	TaskState string
	Message   string
	ElapsedMs int64
}

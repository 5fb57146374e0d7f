package store

import "time"

type StepRecord struct {
	Name    string
	Status  string // ok|fail|skipped
	Policy  string // abort|continue
	Message string
	Digest  string
}

type Run struct {
	ID         int64
	Mode       string
	DryRun     bool
	Status     string // ok|fail
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time

	Steps []StepRecord
}

type RunStore interface {
	Migrate() error

	RecordRun(r Run) (int64, error)
	ListRuns(limit int) ([]Run, error)

	Close() error
}

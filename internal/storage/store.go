package storage

import (
	"context"
	"time"
)

// Store persists the journal of patch runs.
type Store interface {
	JournalStore
	Close() error
}

// JournalStore defines operations for recording and querying patch runs.
type JournalStore interface {
	// RecordRun inserts a run with its steps and returns the new run ID.
	RecordRun(ctx context.Context, run *Run) (int64, error)

	// GetRun retrieves a run and its steps by ID.
	GetRun(ctx context.Context, id int64) (*Run, error)

	// ListRuns returns the most recent runs, newest first. An empty path
	// matches every file.
	ListRuns(ctx context.Context, path string, limit int) ([]*Run, error)
}

// Run is one application of a plan to one file. Runs started by the same
// invocation share a Batch.
type Run struct {
	ID          int64
	Batch       string
	Path        string
	Plan        string
	StartedAt   time.Time
	Status      string
	DryRun      bool
	Changed     bool
	BytesBefore int
	BytesAfter  int
	LinesBefore int
	LinesAfter  int
	LineEnding  string
	HashBefore  string
	HashAfter   string
	Error       string
	Steps       []StepRecord
}

// StepRecord is the journaled outcome of one plan step.
type StepRecord struct {
	Index   int
	Name    string
	Kind    string
	Status  string
	Matches int
	Error   string
}

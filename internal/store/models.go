// Package store defines the Run/Job data model and the State interface,
// plus an in-memory reference implementation.
package store

import (
	"regexp"
	"time"
)

type RunStatus string

const (
	RunPending  RunStatus = "PENDING"
	RunRunning  RunStatus = "RUNNING"
	RunFinished RunStatus = "FINISHED"
)

type JobStatus string

const (
	JobPending     JobStatus = "PENDING"
	JobProcessing  JobStatus = "PROCESSING"
	JobDone        JobStatus = "DONE"
	JobFailed      JobStatus = "FAILED"
	JobNeedsSearch JobStatus = "NEEDS_SEARCH"
)

// channelIDPattern matches a canonical YouTube channel id: the invariant
// shape Job.YouTubeChannelID must hold once a Job reaches DONE.
var channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// IsValidChannelID reports whether id matches the canonical channel id shape.
func IsValidChannelID(id string) bool {
	return channelIDPattern.MatchString(id)
}

// Summary is set exactly once, atomically with a Run's transition to
// FINISHED.
type Summary struct {
	Total           int     `json:"total"`
	Done            int     `json:"done"`
	Failed          int     `json:"failed"`
	NeedsSearch     int     `json:"needs_search"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Run represents one user-submitted batch.
type Run struct {
	ID         uint64
	AnalysisID int64
	OwnerID    string
	Status     RunStatus
	CreatedAt  time.Time
	FinishedAt *time.Time
	Summary    *Summary
}

// Job is one input within a Run.
type Job struct {
	ID               uint64
	RunID            uint64
	InputChannel     string
	YouTubeChannelID string
	Status           JobStatus
	Attempts         int
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a shallow copy safe to hand to callers without aliasing the
// store's internal state (readers must see a snapshot, not a live pointer).
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	cp := *r
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	if r.Summary != nil {
		s := *r.Summary
		cp.Summary = &s
	}
	return &cp
}

func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}

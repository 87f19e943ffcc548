package queuedash

import (
	"github.com/goccy/go-json"
	"github.com/roadrunner-server/errors"
)

// JobState is the lifecycle state of a job as reported by the engine.
type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateActive    JobState = "active"
	StateDelayed   JobState = "delayed"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// States lists every valid job state in a fixed order. Listing requests
// without a state filter fan out over this set.
var States = [...]JobState{StateWaiting, StateActive, StateDelayed, StateCompleted, StateFailed}

// ParseState validates a raw state string against the closed state set.
func ParseState(s string) (JobState, error) {
	switch JobState(s) {
	case StateWaiting, StateActive, StateDelayed, StateCompleted, StateFailed:
		return JobState(s), nil
	default:
		return "", errors.Errorf("invalid job state %q, must be one of: waiting, active, delayed, completed, failed", s)
	}
}

// Job is the engine-owned unit of work as the gateway serializes it.
// Payload, options, progress and the return value are opaque to the gateway
// and pass through untouched. Optional fields are pointers or nil raw
// messages so "absent" and "present" stay distinguishable on the wire.
type Job struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Options      json.RawMessage `json:"options,omitempty"`
	Progress     json.RawMessage `json:"progress,omitempty"`
	AttemptsMade int             `json:"attemptsMade"`
	FailedReason string          `json:"failedReason,omitempty"`
	ReturnValue  json.RawMessage `json:"returnValue,omitempty"`

	// CreatedAt is a unix timestamp in milliseconds. ProcessedAt and
	// FinishedAt stay nil until the engine reaches those points.
	CreatedAt   int64  `json:"timestamp"`
	ProcessedAt *int64 `json:"processedOn,omitempty"`
	FinishedAt  *int64 `json:"finishedOn,omitempty"`

	// State is derived, queried from the engine, never stored locally.
	State JobState `json:"state,omitempty"`
}

// Counts is the per-state job count summary for one queue.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerInfo describes one worker process attached to a queue.
type WorkerInfo struct {
	ID      string `json:"id"`
	Addr    string `json:"addr,omitempty"`
	Started int64  `json:"started,omitempty"`
}

// SchedulerInfo describes one repeatable-job rule registered on a queue.
type SchedulerInfo struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Pattern string `json:"pattern,omitempty"`
	Every   int64  `json:"every,omitempty"`
	Next    int64  `json:"next,omitempty"`
}

// SearchFilter narrows a job search. Zero values mean "no constraint".
// Data, when set, is matched as a subset of the job payload.
type SearchFilter struct {
	Name  string
	State JobState
	Data  map[string]any
	Limit int
}

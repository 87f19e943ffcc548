package queuedash

import (
	"context"
	"time"
)

// Queue is the narrow handle the gateway holds on one named queue inside the
// external engine. The engine owns storage, scheduling and retry semantics;
// every method here is a single engine call and may block on I/O.
// Implementations must be safe for concurrent use.
type Queue interface {
	// Name returns the unique queue name used for registry lookup.
	Name() string

	// JobCounts returns the per-state job count summary.
	JobCounts(ctx context.Context) (*Counts, error)
	// Paused reports whether the queue is currently paused.
	Paused(ctx context.Context) (bool, error)
	// Jobs returns jobs in the given state over the half-open window
	// [start, end), in engine-defined order.
	Jobs(ctx context.Context, state JobState, start, end int) ([]*Job, error)
	// Job resolves a single job by id. Unknown ids yield ErrJobNotFound.
	Job(ctx context.Context, id string) (JobHandle, error)
	// JobLogs returns the log lines recorded for a job.
	JobLogs(ctx context.Context, id string) ([]string, error)
	// Workers lists worker processes attached to the queue.
	Workers(ctx context.Context) ([]*WorkerInfo, error)
	// Schedulers lists repeatable-job rules registered on the queue.
	Schedulers(ctx context.Context) ([]*SchedulerInfo, error)
	// DeadLetter returns dead-lettered jobs over [start, end).
	DeadLetter(ctx context.Context, start, end int) ([]*Job, error)
	// StateCount returns the number of jobs currently in one state.
	StateCount(ctx context.Context, state JobState) (int64, error)
	// Search returns jobs matching the filter, up to filter.Limit.
	Search(ctx context.Context, filter *SearchFilter) ([]*Job, error)

	// Pause stops the queue from handing jobs to workers.
	Pause(ctx context.Context) error
	// Resume lifts a previous pause.
	Resume(ctx context.Context) error
	// Obliterate removes the queue and all of its data.
	Obliterate(ctx context.Context, force bool) error
	// Drain removes waiting jobs, and delayed ones when requested.
	Drain(ctx context.Context, includeDelayed bool) error
	// RetryAll re-enqueues failed jobs, capped by count when count > 0.
	// It returns the number of jobs retried.
	RetryAll(ctx context.Context, count int) (int64, error)
	// Clean removes completed or failed jobs older than grace, up to limit,
	// and returns the number removed.
	Clean(ctx context.Context, grace time.Duration, limit int64, state JobState) (int64, error)
}

// JobHandle is a resolved reference to one job inside its queue.
type JobHandle interface {
	// Job returns the job entity the handle was resolved with.
	Job() *Job
	// State queries the engine for the job's current state.
	State(ctx context.Context) (JobState, error)
	// Remove deletes the job from the queue.
	Remove(ctx context.Context) error
	// Retry re-enqueues a failed job.
	Retry(ctx context.Context) error
	// Promote moves a delayed job to the waiting state.
	Promote(ctx context.Context) error
}

// EventHandler receives one engine event payload.
type EventHandler func(payload any)

// EventSource is an upstream emitter of engine events the multiplexer
// subscribes to. On returns a handler id used to remove exactly that
// registration with Off.
type EventSource interface {
	Name() string
	On(event string, h EventHandler) uint64
	Off(event string, id uint64)
}

// Authorizer decides whether a mutating request may proceed. It is invoked
// with the request context and the exact action tag of the guarded route and
// may block (e.g. on a remote policy call).
type Authorizer interface {
	Authorize(ctx context.Context, action Action) bool
}

// AuthorizerFunc adapts a plain function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, action Action) bool

func (f AuthorizerFunc) Authorize(ctx context.Context, action Action) bool {
	return f(ctx, action)
}

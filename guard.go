package queuedash

import (
	"context"

	"github.com/roadrunner-server/errors"
)

// Action identifies one guarded mutation. The tag is handed verbatim to the
// configured Authorizer so policy can discriminate per action.
type Action string

const (
	ActionQueuePause      Action = "queue:pause"
	ActionQueueResume     Action = "queue:resume"
	ActionQueueObliterate Action = "queue:obliterate"
	ActionQueueDrain      Action = "queue:drain"
	ActionQueueRetryAll   Action = "queue:retryAll"
	ActionQueueClean      Action = "queue:clean"
	ActionJobRemove       Action = "job:remove"
	ActionJobRetry        Action = "job:retry"
	ActionJobPromote      Action = "job:promote"
)

var (
	// ErrReadOnly rejects every mutation while the gateway runs read-only.
	ErrReadOnly = errors.Str("gateway is in read-only mode")
	// ErrUnauthorized rejects a mutation the Authorizer denied. The message
	// deliberately carries no policy detail.
	ErrUnauthorized = errors.Str("unauthorized")
)

// guard is the mutation-authorization predicate evaluated before every
// state-changing engine call. The read-only check runs first and cannot be
// bypassed by a permissive authorizer.
type guard struct {
	readOnly bool
	auth     Authorizer
}

func (g *guard) check(ctx context.Context, action Action) error {
	if g.readOnly {
		return ErrReadOnly
	}

	if g.auth != nil && !g.auth.Authorize(ctx, action) {
		return ErrUnauthorized
	}

	return nil
}

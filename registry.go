package queuedash

import (
	"github.com/roadrunner-server/errors"
)

// ErrJobNotFound is returned by Queue.Job for unknown job ids. A lookup miss
// is an expected condition, not an engine failure.
var ErrJobNotFound = errors.Str("job not found")

// Registry is the immutable name to queue-handle lookup built once at
// gateway construction. Safe for unlimited concurrent readers; there is no
// registration after construction.
type Registry struct {
	order  []string
	byName map[string]Queue
}

// NewRegistry builds a registry from the supplied handles, preserving their
// order for aggregate listings. Duplicate names are a construction error.
func NewRegistry(queues []Queue) (*Registry, error) {
	const op = errors.Op("registry_new")

	r := &Registry{
		order:  make([]string, 0, len(queues)),
		byName: make(map[string]Queue, len(queues)),
	}

	for _, q := range queues {
		name := q.Name()
		if name == "" {
			return nil, errors.E(op, errors.Str("queue with an empty name"))
		}
		if _, ok := r.byName[name]; ok {
			return nil, errors.E(op, errors.Errorf("duplicate queue name: %s", name))
		}

		r.order = append(r.order, name)
		r.byName[name] = q
	}

	return r, nil
}

// Lookup resolves a queue handle by name.
func (r *Registry) Lookup(name string) (Queue, bool) {
	q, ok := r.byName[name]
	return q, ok
}

// Names returns queue names in registration order.
func (r *Registry) Names() []string {
	return r.order
}

// Len returns the number of registered queues.
func (r *Registry) Len() int {
	return len(r.order)
}

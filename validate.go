package queuedash

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/roadrunner-server/errors"
)

const (
	// MaxPageSize caps every listing window.
	MaxPageSize = 200

	maxCleanLimit      = 1000
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

// clampRange normalizes a requested [start, end) window so that
// 0 <= start <= end <= start+MaxPageSize holds.
func clampRange(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	if end-start > MaxPageSize {
		end = start + MaxPageSize
	}
	return start, end
}

// parseRange reads start/end query parameters. A missing or unparsable start
// falls back to 0, a missing end to a full window.
func parseRange(r *http.Request) (int, int) {
	start, err := strconv.Atoi(r.URL.Query().Get("start"))
	if err != nil {
		start = 0
	}

	end, err := strconv.Atoi(r.URL.Query().Get("end"))
	if err != nil {
		end = start + MaxPageSize
	}

	return clampRange(start, end)
}

// cleanParams is the decoded body of a clean request.
type cleanParams struct {
	Grace *int64 `json:"grace"`
	Limit int64  `json:"limit"`
	Type  string `json:"type"`
}

// validate checks grace and type and clamps limit, returning the normalized
// grace window in milliseconds and the clean target state.
func (c *cleanParams) validate() (int64, int64, JobState, error) {
	if c.Grace == nil || *c.Grace < 0 {
		return 0, 0, "", errors.Str("grace must be a non-negative integer of milliseconds")
	}

	var state JobState
	switch c.Type {
	case string(StateCompleted):
		state = StateCompleted
	case string(StateFailed):
		state = StateFailed
	default:
		return 0, 0, "", errors.Errorf("invalid clean type %q, must be completed or failed", c.Type)
	}

	limit := c.Limit
	if limit <= 0 || limit > maxCleanLimit {
		limit = maxCleanLimit
	}

	return *c.Grace, limit, state, nil
}

// parseSearchFilter reads search query parameters. An invalid data document
// is dropped rather than rejected; an invalid state is a validation error.
func parseSearchFilter(r *http.Request) (*SearchFilter, error) {
	q := r.URL.Query()

	f := &SearchFilter{
		Name:  q.Get("name"),
		Limit: defaultSearchLimit,
	}

	if raw := q.Get("state"); raw != "" {
		state, err := ParseState(raw)
		if err != nil {
			return nil, err
		}
		f.State = state
	}

	if raw := q.Get("data"); raw != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			f.Data = data
		}
	}

	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			f.Limit = limit
		}
	}

	if f.Limit < 1 {
		f.Limit = 1
	}
	if f.Limit > maxSearchLimit {
		f.Limit = maxSearchLimit
	}

	return f, nil
}

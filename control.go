package queuedash

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// statusBody is the token returned by every successful mutation.
type statusBody struct {
	Status string `json:"status"`
}

// guarded applies the mutation guard for one action. The guard runs before
// queue lookup and before any engine call; on denial the request is already
// answered.
func (g *Gateway) guarded(w http.ResponseWriter, r *http.Request, action Action) bool {
	if err := g.guard.check(r.Context(), action); err != nil {
		g.metrics.CountDenied()
		g.writeError(w, http.StatusForbidden, err.Error())
		return false
	}

	return true
}

// decodeBody decodes an optional JSON request body. An empty body leaves the
// destination at its zero value.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}

func (g *Gateway) handlePause(w http.ResponseWriter, r *http.Request) {
	if !g.guarded(w, r, ActionQueuePause) {
		return
	}

	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	if err := q.Pause(r.Context()); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, statusBody{Status: "paused"})
}

func (g *Gateway) handleResume(w http.ResponseWriter, r *http.Request) {
	if !g.guarded(w, r, ActionQueueResume) {
		return
	}

	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	if err := q.Resume(r.Context()); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, statusBody{Status: "resumed"})
}

func (g *Gateway) handleObliterate(w http.ResponseWriter, r *http.Request) {
	if !g.guarded(w, r, ActionQueueObliterate) {
		return
	}

	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	// authorization is the only gate, no extra confirmation at this layer
	if err := q.Obliterate(r.Context(), true); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, statusBody{Status: "obliterated"})
}

func (g *Gateway) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !g.guarded(w, r, ActionQueueDrain) {
		return
	}

	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	var body struct {
		Delayed bool `json:"delayed"`
	}
	if err := decodeBody(r, &body); err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := q.Drain(r.Context(), body.Delayed); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, statusBody{Status: "drained"})
}

func (g *Gateway) handleRetryAll(w http.ResponseWriter, r *http.Request) {
	if !g.guarded(w, r, ActionQueueRetryAll) {
		return
	}

	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := decodeBody(r, &body); err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	retried, err := q.RetryAll(r.Context(), body.Count)
	if err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]int64{"retried": retried})
}

func (g *Gateway) handleClean(w http.ResponseWriter, r *http.Request) {
	if !g.guarded(w, r, ActionQueueClean) {
		return
	}

	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	var body cleanParams
	if err := decodeBody(r, &body); err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grace, limit, state, err := body.validate()
	if err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cleaned, err := q.Clean(r.Context(), time.Duration(grace)*time.Millisecond, limit, state)
	if err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]int64{"cleaned": cleaned})
}

// jobOp resolves the {id} route parameter on a guarded job route.
func (g *Gateway) jobOp(w http.ResponseWriter, r *http.Request, action Action) (JobHandle, bool) {
	if !g.guarded(w, r, action) {
		return nil, false
	}

	q, ok := g.lookup(w, r)
	if !ok {
		return nil, false
	}

	h, err := q.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		g.engineError(w, err)
		return nil, false
	}

	return h, true
}

func (g *Gateway) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	h, ok := g.jobOp(w, r, ActionJobRemove)
	if !ok {
		return
	}

	if err := h.Remove(r.Context()); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, statusBody{Status: "removed"})
}

func (g *Gateway) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	h, ok := g.jobOp(w, r, ActionJobRetry)
	if !ok {
		return
	}

	if err := h.Retry(r.Context()); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, statusBody{Status: "retried"})
}

func (g *Gateway) handlePromoteJob(w http.ResponseWriter, r *http.Request) {
	h, ok := g.jobOp(w, r, ActionJobPromote)
	if !ok {
		return
	}

	if err := h.Promote(r.Context()); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, statusBody{Status: "promoted"})
}

package queuedash

import (
	stderr "errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// errorBody is the single error envelope every failed request returns.
type errorBody struct {
	Error string `json:"error"`
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.log.Debug("response write failed", zap.Error(err))
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, status int, msg string) {
	g.writeJSON(w, status, errorBody{Error: msg})
}

// engineError maps a failed engine call onto the wire: unknown-job lookups
// are 404, everything else is 500 carrying the engine's message and nothing
// more.
func (g *Gateway) engineError(w http.ResponseWriter, err error) {
	if stderr.Is(err, ErrJobNotFound) {
		g.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	g.metrics.CountUpstreamErr()
	g.writeError(w, http.StatusInternalServerError, err.Error())
}

func (g *Gateway) queueNotFound(w http.ResponseWriter, name string) {
	g.writeError(w, http.StatusNotFound, "queue "+name+" not found")
}

package queuedash

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// streamEvents is the fixed set of engine events fanned out to viewers.
var streamEvents = [...]string{
	"completed", "failed", "progress", "active", "waiting", "stalled", "removed",
}

// envelope is one SSE data frame.
type envelope struct {
	Queue   string `json:"queue"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// subscription records one (source, event, handler id) registration owned by
// a single connection. Subscriptions are never shared between connections;
// teardown walks the list exactly once.
type subscription struct {
	src   EventSource
	event string
	id    uint64
}

func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		g.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// priming line so intermediaries commit the response
	fmt.Fprint(w, "\n")
	flusher.Flush()

	events := make(chan envelope, g.cfg.StreamBuffer)
	subs := make([]subscription, 0, len(g.sources)*len(streamEvents))

	for _, src := range g.sources {
		queue := src.Name()
		for _, event := range streamEvents {
			ev := event
			id := src.On(event, func(payload any) {
				select {
				case events <- envelope{Queue: queue, Event: ev, Payload: payload}:
				default:
					// viewer is not keeping up, drop for this connection only
				}
			})

			subs = append(subs, subscription{src: src, event: event, id: id})
		}
	}

	g.metrics.StreamOpened()
	g.log.Debug("event stream opened", zap.Int("subscriptions", len(subs)))

	heartbeat := time.NewTicker(g.cfg.heartbeat())

	// single exit path: the deferred teardown runs exactly once per
	// connection, whether the client went away or a write failed
	defer func() {
		heartbeat.Stop()
		for _, s := range subs {
			s.src.Off(s.event, s.id)
		}
		g.metrics.StreamClosed()
		g.log.Debug("event stream closed")
	}()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				g.log.Warn("event payload marshal failed", zap.String("queue", ev.Queue), zap.String("event", ev.Event), zap.Error(err))
				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
			g.metrics.CountEvent()

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

package queuedash

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// openStream connects to /api/events and hands back a line reader over the
// live response body.
func openStream(t *testing.T, srv *httptest.Server) (*http.Response, *bufio.Reader) {
	t.Helper()

	resp, err := http.Get(srv.URL + "/api/events")
	if err != nil {
		t.Fatalf("connect stream: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp, bufio.NewReader(resp.Body)
}

// waitListeners polls the emitter until it reports want handlers.
func waitListeners(t *testing.T, em *Emitter, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if em.TotalListeners() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("emitter stuck at %d listeners, want %d", em.TotalListeners(), want)
}

// readDataFrame scans stream lines until a data frame arrives and decodes it.
func readDataFrame(t *testing.T, r *bufio.Reader) envelope {
	t.Helper()

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}

		line = strings.TrimRight(line, "\n")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev envelope
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode frame %q: %v", line, err)
		}
		return ev
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	em := NewEmitter("mail")
	gw := newTestGateway(t, &Config{Events: []EventSource{em}}, newFakeQueue("mail"))

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	resp, r := openStream(t, srv)

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("unexpected cache control: %q", cc)
	}

	// one handler per streamed event name
	waitListeners(t, em, len(streamEvents))

	em.Emit("completed", map[string]any{"jobId": "42"})

	ev := readDataFrame(t, r)
	if ev.Queue != "mail" || ev.Event != "completed" {
		t.Fatalf("unexpected frame: %+v", ev)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok || payload["jobId"] != "42" {
		t.Fatalf("unexpected payload: %+v", ev.Payload)
	}
}

func TestStreamHeartbeat(t *testing.T) {
	em := NewEmitter("mail")
	gw := newTestGateway(t, &Config{HeartbeatInterval: 1, Events: []EventSource{em}}, newFakeQueue("mail"))

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	_, r := openStream(t, srv)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, ": heartbeat") {
			return
		}
	}

	t.Fatal("no heartbeat within deadline")
}

func TestStreamTeardownUnsubscribes(t *testing.T) {
	em := NewEmitter("mail")
	gw := newTestGateway(t, &Config{Events: []EventSource{em}}, newFakeQueue("mail"))

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	resp, _ := openStream(t, srv)
	waitListeners(t, em, len(streamEvents))

	_ = resp.Body.Close()

	// the deferred teardown must drop every registration for the connection
	waitListeners(t, em, 0)
}

func TestStreamTwoViewersIndependent(t *testing.T) {
	em := NewEmitter("mail")
	gw := newTestGateway(t, &Config{Events: []EventSource{em}}, newFakeQueue("mail"))

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	respA, _ := openStream(t, srv)
	waitListeners(t, em, len(streamEvents))

	_, rB := openStream(t, srv)
	waitListeners(t, em, 2*len(streamEvents))

	// closing one viewer must not tear down the other's registrations
	_ = respA.Body.Close()
	waitListeners(t, em, len(streamEvents))

	em.Emit("failed", map[string]any{"jobId": "7"})
	ev := readDataFrame(t, rB)
	if ev.Event != "failed" {
		t.Fatalf("surviving viewer missed event: %+v", ev)
	}
}

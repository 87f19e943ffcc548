package redisq

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/queuedash/queuedash"
)

func TestKeyScheme(t *testing.T) {
	q := New(nil, nil, nil, "mail")

	tests := []struct {
		got  string
		want string
	}{
		{q.key("paused"), "qd:mail:paused"},
		{q.jobKey("j1"), "qd:mail:job:j1"},
		{q.logsKey("j1"), "qd:mail:logs:j1"},
		{q.stateKey(queuedash.StateWaiting), "qd:mail:waiting"},
		{q.stateKey(queuedash.StateFailed), "qd:mail:failed"},
		{q.key("events"), "qd:mail:events"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("unexpected key, got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestKeyPrefixOverride(t *testing.T) {
	q := New(&Config{Prefix: "jobs"}, nil, nil, "mail")

	if got := q.jobKey("j1"); got != "jobs:mail:job:j1" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.InitDefaults()

	if cfg.Prefix != "qd" {
		t.Fatalf("unexpected prefix: %q", cfg.Prefix)
	}
	if cfg.SearchScanDepth != 1000 {
		t.Fatalf("unexpected scan depth: %d", cfg.SearchScanDepth)
	}
}

func TestPayloadMatches(t *testing.T) {
	payload := json.RawMessage(`{"to": "a@b.c", "attempts": 3, "tags": ["x", "y"]}`)

	tests := []struct {
		name string
		want map[string]any
		ok   bool
	}{
		{"empty filter matches", nil, true},
		{"string match", map[string]any{"to": "a@b.c"}, true},
		{"number match", map[string]any{"attempts": float64(3)}, true},
		{"array match", map[string]any{"tags": []any{"x", "y"}}, true},
		{"subset match", map[string]any{"to": "a@b.c", "attempts": float64(3)}, true},
		{"value mismatch", map[string]any{"to": "other"}, false},
		{"missing key", map[string]any{"cc": "a@b.c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := payloadMatches(payload, tt.want); got != tt.ok {
				t.Fatalf("got %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestPayloadMatchesMalformedPayload(t *testing.T) {
	if payloadMatches(json.RawMessage(`not json`), map[string]any{"k": "v"}) {
		t.Fatal("malformed payload must never match a non-empty filter")
	}
	if !payloadMatches(json.RawMessage(`not json`), nil) {
		t.Fatal("empty filter matches regardless of payload")
	}
}

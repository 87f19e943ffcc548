package queuedash

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClampRange(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		end       int
		wantStart int
		wantEnd   int
	}{
		{"plain window", 0, 10, 0, 10},
		{"negative start", -5, 10, 0, 10},
		{"end before start", 20, 5, 20, 20},
		{"oversized window", 0, 1000, 0, MaxPageSize},
		{"oversized offset window", 100, 1000, 100, 100 + MaxPageSize},
		{"both negative", -3, -1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := clampRange(tt.start, tt.end)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Fatalf("got [%d, %d), want [%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}

			if start < 0 || end < start || end-start > MaxPageSize {
				t.Fatalf("window invariant violated: [%d, %d)", start, end)
			}
		})
	}
}

func TestParseRangeDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/jobs", nil)
	start, end := parseRange(r)
	if start != 0 || end != MaxPageSize {
		t.Fatalf("got [%d, %d), want [0, %d)", start, end, MaxPageSize)
	}

	r = httptest.NewRequest("GET", "/jobs?start=abc&end=xyz", nil)
	start, end = parseRange(r)
	if start != 0 || end != MaxPageSize {
		t.Fatalf("unparsable params, got [%d, %d), want [0, %d)", start, end, MaxPageSize)
	}

	r = httptest.NewRequest("GET", "/jobs?start=10&end=20", nil)
	start, end = parseRange(r)
	if start != 10 || end != 20 {
		t.Fatalf("got [%d, %d), want [10, 20)", start, end)
	}
}

func TestParseState(t *testing.T) {
	for _, s := range States {
		got, err := ParseState(string(s))
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", s, err)
		}
		if got != s {
			t.Fatalf("got %s, want %s", got, s)
		}
	}

	_, err := ParseState("latest")
	if err == nil {
		t.Fatal("expected error for unknown state")
	}

	msg := err.Error()
	for _, s := range States {
		if !strings.Contains(msg, string(s)) {
			t.Fatalf("error must enumerate %q, got %q", s, msg)
		}
	}
}

func TestCleanParamsValidate(t *testing.T) {
	grace := func(v int64) *int64 { return &v }

	tests := []struct {
		name    string
		params  cleanParams
		wantErr bool
	}{
		{"valid completed", cleanParams{Grace: grace(1000), Type: "completed"}, false},
		{"valid failed zero grace", cleanParams{Grace: grace(0), Type: "failed"}, false},
		{"missing grace", cleanParams{Type: "completed"}, true},
		{"negative grace", cleanParams{Grace: grace(-1), Type: "completed"}, true},
		{"bad type", cleanParams{Grace: grace(0), Type: "waiting"}, true},
		{"empty type", cleanParams{Grace: grace(0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := tt.params.validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCleanParamsLimitClamp(t *testing.T) {
	grace := func(v int64) *int64 { return &v }

	tests := []struct {
		limit int64
		want  int64
	}{
		{0, maxCleanLimit},
		{10, 10},
		{maxCleanLimit, maxCleanLimit},
		{maxCleanLimit + 1, maxCleanLimit},
	}

	for _, tt := range tests {
		p := cleanParams{Grace: grace(0), Limit: tt.limit, Type: "failed"}
		_, limit, _, err := p.validate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if limit != tt.want {
			t.Fatalf("limit %d: got %d, want %d", tt.limit, limit, tt.want)
		}
	}
}

func TestParseSearchFilter(t *testing.T) {
	r := httptest.NewRequest("GET", `/search?name=send-email&state=failed&data={"user":"u1"}&limit=10`, nil)
	f, err := parseSearchFilter(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Name != "send-email" || f.State != StateFailed || f.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", f)
	}
	if f.Data["user"] != "u1" {
		t.Fatalf("unexpected data filter: %v", f.Data)
	}
}

func TestParseSearchFilterDropsBadData(t *testing.T) {
	r := httptest.NewRequest("GET", "/search?data={not-json", nil)
	f, err := parseSearchFilter(r)
	if err != nil {
		t.Fatalf("invalid data must be dropped, not rejected: %v", err)
	}
	if f.Data != nil {
		t.Fatalf("expected dropped data filter, got %v", f.Data)
	}
}

func TestParseSearchFilterRejectsBadState(t *testing.T) {
	r := httptest.NewRequest("GET", "/search?state=bogus", nil)
	if _, err := parseSearchFilter(r); err == nil {
		t.Fatal("expected state validation error")
	}
}

func TestParseSearchFilterLimitClamp(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", defaultSearchLimit},
		{"limit=0", 1},
		{"limit=-4", 1},
		{"limit=500", maxSearchLimit},
		{"limit=25", 25},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/search?"+tt.raw, nil)
		f, err := parseSearchFilter(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Limit != tt.want {
			t.Fatalf("%q: got %d, want %d", tt.raw, f.Limit, tt.want)
		}
	}
}

package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatalf("expected generated request id")
	}
	if got := rec.Header().Get("X-Request-Id"); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "incoming-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "incoming-id" {
		t.Fatalf("expected incoming id to be kept, got %q", seen)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xrip       string
		want       string
	}{
		{name: "remote addr only", remoteAddr: "198.51.100.10:1234", want: "198.51.100.10"},
		{name: "x-forwarded-for first entry", remoteAddr: "10.0.0.1:1234", xff: "203.0.113.5, 10.0.0.2", want: "203.0.113.5"},
		{name: "x-real-ip fallback", remoteAddr: "10.0.0.1:1234", xrip: "203.0.113.9", want: "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xrip != "" {
				r.Header.Set("X-Real-IP", tt.xrip)
			}
			if got := ClientIP(r); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRecordIDMonotonic(t *testing.T) {
	prev := NewRecordID()
	for i := 0; i < 100; i++ {
		next := NewRecordID()
		if next <= prev {
			t.Fatalf("expected strictly increasing ids, got %d after %d", next, prev)
		}
		prev = next
	}
}

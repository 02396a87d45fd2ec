package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseCORSOrigins(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw      string
		allowAll bool
		empty    bool
		allows   string
		rejects  string
	}{
		{raw: "", empty: true},
		{raw: " , ,", empty: true},
		{raw: "*", allowAll: true, allows: "https://anything.example"},
		{raw: "https://a.example, https://b.example", allows: "https://b.example", rejects: "https://c.example"},
		{raw: "https://a.example,*", allowAll: true, allows: "https://c.example"},
	}
	for _, tc := range cases {
		p := parseCORSOrigins(tc.raw)
		if p.allowAll != tc.allowAll || p.empty() != tc.empty {
			t.Fatalf("parseCORSOrigins(%q): allowAll=%v empty=%v", tc.raw, p.allowAll, p.empty())
		}
		if tc.allows != "" && !p.allows(tc.allows) {
			t.Fatalf("parseCORSOrigins(%q): %q not allowed", tc.raw, tc.allows)
		}
		if tc.rejects != "" && p.allows(tc.rejects) {
			t.Fatalf("parseCORSOrigins(%q): %q allowed", tc.raw, tc.rejects)
		}
	}
}

func TestCORSHeadersOnAllowedOrigin(t *testing.T) {
	t.Setenv("LEXEVAL_CORS_ORIGINS", "https://dash.example")
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://dash.example")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("allow-origin: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET,OPTIONS" {
		t.Fatalf("allow-methods: %q", got)
	}

	// An origin outside the allowlist gets no CORS grant.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin granted: %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	t.Setenv("LEXEVAL_CORS_ORIGINS", "*")
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/runs", nil)
	req.Header.Set("Origin", "https://dash.example")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin: %q", got)
	}
}

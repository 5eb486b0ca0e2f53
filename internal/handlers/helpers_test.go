package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPUsesLastForwardedHop(t *testing.T) {
	cases := []struct {
		name   string
		fwd    string
		remote string
		want   string
	}{
		{"no header", "", "203.0.113.7:5123", "203.0.113.7"},
		{"single hop", "198.51.100.1", "10.0.0.1:80", "198.51.100.1"},
		{"spoofed first hop", "6.6.6.6, 198.51.100.1", "10.0.0.1:80", "198.51.100.1"},
		{"empty header value", "  ", "203.0.113.7:5123", "203.0.113.7"},
		{"unparseable remote", "", "bogus", "bogus"},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = c.remote
		if c.fwd != "" {
			r.Header.Set("X-Forwarded-For", c.fwd)
		}
		if got := clientIP(r); got != c.want {
			t.Fatalf("%s: clientIP = %q, want %q", c.name, got, c.want)
		}
	}
}

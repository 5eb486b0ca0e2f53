package handlers

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// queryID reads a uint id from query or form value, 0 when absent/invalid.
func queryID(r *http.Request, key string) uint {
	v := r.URL.Query().Get(key)
	if v == "" {
		v = r.FormValue(key)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return uint(n)
}

// clientIP resolves the caller address for audit rows. Only the last
// X-Forwarded-For hop is used: that entry is appended by our own reverse
// proxy, while earlier entries arrive client-controlled and spoofable.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

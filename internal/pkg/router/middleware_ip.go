package router

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// realIPHeaders are consulted in order; the first parseable IP wins.
var realIPHeaders = []string{"True-Client-IP", "CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

type clientIPKey struct{}

// middlewareIP resolves the client address from proxy headers and stores it in
// the context. RemoteAddr keeps the socket peer: the headers are client
// supplied and must not drive anything security relevant.
func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rip := realIP(r); rip != "" {
			r = r.WithContext(context.WithValue(r.Context(), clientIPKey{}, rip))
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the resolved client address, or the socket peer when the
// real IP middleware did not run.
func clientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return peerIP(r)
}

// peerIP is the host part of the socket peer address.
func peerIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func realIP(r *http.Request) string {
	for _, h := range realIPHeaders {
		v, _, _ := strings.Cut(r.Header.Get(h), ",")
		if ip := strings.TrimSpace(v); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if host := peerIP(r); net.ParseIP(host) != nil {
		return host
	}
	return ""
}

package api

import (
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nodegrid/nodegrid/pkg/metrics"
)

// requireCredential enforces bearer authentication against the current
// credential, falling back to the pending-token matcher during a rotation
// window. Failures are deliberately opaque: a missing header, a malformed
// header and a wrong token all produce the same unauthorized answer.
func (s *Server) requireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)

		if s.cfg.Creds.Matches(token) {
			next.ServeHTTP(w, r)
			return
		}
		if s.cfg.Pending != nil && token != "" && s.cfg.Pending(token) {
			next.ServeHTTP(w, r)
			return
		}

		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	})
}

// bearerToken extracts the bearer token from the Authorization header,
// returning "" when absent or malformed.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// countRequests feeds the API request counter.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
	})
}

package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to
// prevent cardinality explosion in metrics. This maps paths like /tours/123
// to /tours/{id}.
func normalizePath(path string) string {
	// Exact matches for static routes (no normalization needed)
	staticRoutes := map[string]bool{
		"/":                     true,
		"/tours":                true,
		"/auth/google":          true,
		"/auth/google/callback": true,
		"/auth/me":              true,
		"/auth/logout":          true,
		"/upload/single":        true,
		"/upload/multiple":      true,
		"/upload/sign":          true,
		"/health":               true,
		"/metrics":              true,
	}

	if staticRoutes[path] {
		return path
	}

	if strings.HasPrefix(path, "/tours/share/") {
		return "/tours/share/{token}"
	}

	if strings.HasPrefix(path, "/tours/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/tours/{id}"
		}
	}

	if strings.HasPrefix(path, "/uploads/") {
		return "/uploads/{file}"
	}

	// Fallback: return as-is for unknown patterns
	return path
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.wroteHeader {
		return
	}
	sr.statusCode = code
	sr.wroteHeader = true
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for every request.
// The metrics endpoint itself is excluded to avoid self-observation noise.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			m.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(sr.statusCode),
				time.Since(start).Seconds(),
			)
		})
	}
}

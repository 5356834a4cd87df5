package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// HealthPath is the fixed health endpoint.
const HealthPath = "/health"

// healthBody is the exact health response body.
var healthBody = []byte(`{"status":"ok"}`)

// NewHandler returns the routing for a content root: GET /health answers
// from memory, every other GET is a static lookup under contentRoot.
func NewHandler(contentRoot string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthPath, handleHealth)
	mux.Handle("GET /", http.FileServer(http.Dir(contentRoot)))
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(healthBody)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(healthBody)
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

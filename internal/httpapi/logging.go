package httpapi

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qms/clinic-queue/internal/log"
	"qms/clinic-queue/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// LoggingMiddleware assigns a request ID, stores a request scoped log entry
// in the context and records one log line and metric sample per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		entry := log.FromContext(r.Context()).WithField("request_id", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = log.ToContext(ctx, entry)

		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r.WithContext(ctx))
		duration := time.Since(start)

		route := routeLabel(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(writer.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		fields := entry.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      writer.status,
			"duration_ms": duration.Milliseconds(),
		})
		if writer.status >= http.StatusInternalServerError {
			fields.Warn("request")
			return
		}
		fields.Info("request")
	})
}

// routeLabel keeps metric label cardinality bounded to the known routes.
func routeLabel(path string) string {
	switch path {
	case "/", "/display", "/health-check", "/login", "/admin/queue", "/admin/reports", "/metrics":
		return path
	default:
		if strings.HasPrefix(path, livePrefix+"/") {
			return livePrefix
		}
		return "other"
	}
}

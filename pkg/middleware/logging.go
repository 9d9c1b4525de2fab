package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"sp-service/pkg/logger"
	"sp-service/pkg/metrics"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-Id"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Logging tags every request with an id, hands a request-scoped logger to the
// handlers through the context and logs the outcome. m may be nil.
func Logging(log logrus.FieldLogger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			var err error
			if id, err = nanoid.New(); err != nil {
				id = strconv.FormatInt(start.UnixNano(), 36)
			}
		}
		w.Header().Set(RequestIDHeader, id)

		entry := log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		r = r.WithContext(logger.WithLogger(r.Context(), entry))

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, r.Method, strconv.Itoa(status), took.Seconds())

		done := entry.WithFields(logrus.Fields{
			"status":   status,
			"duration": took.Truncate(time.Millisecond).String(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			done.Error("request failed")
		case status >= http.StatusBadRequest:
			done.Warn("request rejected")
		default:
			done.Info("request served")
		}
	})
}

package logging

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDInLogName = "request_id"
	defaultTimeFormat  = time.RFC3339
)

// Init configures the process-wide logrus logger. Unknown levels fall back
// to info.
func Init(level string) {
	Configure(logrus.StandardLogger(), level, os.Stdout)
}

func Configure(logger *logrus.Logger, level string, out io.Writer) {
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: defaultTimeFormat})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetOutput(out)
}

// RequestLogger logs one line per request once the handler has returned.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(logrus.Fields{
				"method":  r.Method,
				"path":    r.URL.Path,
				"status":  status,
				"latency": time.Since(start).String(),
				"bytes":   ww.BytesWritten(),
				"ip":      r.RemoteAddr,
			})
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				entry = entry.WithField(RequestIDInLogName, reqID)
			}
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("request failed")
			case status >= http.StatusBadRequest:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
		})
	}
}

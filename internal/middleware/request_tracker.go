package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/models"
)

const recordTimeout = 5 * time.Second

// RequestRecorder persists one request log entry.
type RequestRecorder interface {
	CreateRequest(ctx context.Context, req models.Request) error
}

// RequestTracker stores request metrics in the request log.
type RequestTracker struct {
	recorder RequestRecorder
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewRequestTracker creates a new request tracker middleware.
func NewRequestTracker(recorder RequestRecorder, logger *zap.Logger) *RequestTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestTracker{recorder: recorder, logger: logger}
}

// Middleware returns an HTTP middleware that tracks request metrics. Only
// method, route, status, timing and sizes are recorded.
func (rt *RequestTracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			requestSizeBytes := int(r.ContentLength)
			if requestSizeBytes < 0 {
				requestSizeBytes = 0
			}

			entry := models.Request{
				RequestID:         chimiddleware.GetReqID(r.Context()),
				Method:            r.Method,
				Endpoint:          routePattern(r),
				StatusCode:        rw.statusCode,
				ResponseTimeMs:    int(time.Since(start).Milliseconds()),
				RequestSizeBytes:  requestSizeBytes,
				ResponseSizeBytes: rw.size,
			}

			// Recorded in the background so the log never delays or fails the response.
			rt.wg.Add(1)
			go func() {
				defer rt.wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
				defer cancel()
				if err := rt.recorder.CreateRequest(ctx, entry); err != nil {
					rt.logger.Warn("failed to record request", zap.String("endpoint", entry.Endpoint), zap.Error(err))
				}
			}()
		})
	}
}

// Wait blocks until in-flight recordings finish or ctx is done.
func (rt *RequestTracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/reqctx"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	actorHeader     = "X-Actor"
)

// requestContext threads a request ID and actor through the request
// context and hangs a request-scoped logger off it. The request ID is
// taken from the caller when present so traces span services.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := reqctx.WithRequestID(r.Context(), requestID)
		if actor := r.Header.Get(actorHeader); actor != "" {
			ctx = reqctx.WithActor(ctx, actor)
		}

		log := logger.Log.With(
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		ctx = logger.WithLogger(ctx, log)

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request with status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		logger.FromContext(r.Context()).Info("Request handled",
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/sbilibin2017/gw-users/internal/logger"
)

var tooManyRequestsBody = []byte(`{"message":"Too Many Requests"}`)

// RateLimitMiddleware limits every client IP to limitPerMinute requests per
// minute. Counters live in memory unless a shared counter is given.
func RateLimitMiddleware(limitPerMinute int, counter httprate.LimitCounter) func(http.Handler) http.Handler {
	opts := []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Warnw("rate limit exceeded", "remote_addr", r.RemoteAddr, "uri", r.RequestURI)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write(tooManyRequestsBody)
		}),
	}
	if counter != nil {
		opts = append(opts, httprate.WithLimitCounter(counter))
	}

	return httprate.Limit(limitPerMinute, time.Minute, opts...)
}

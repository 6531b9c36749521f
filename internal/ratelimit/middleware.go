package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
)

// Middleware limits requests per client IP under purpose. Rejections carry
// retryAfter as Retry-After. A limiter failure is logged and the request is
// let through.
func Middleware(limiter Limiter, purpose string, retryAfter time.Duration) func(http.Handler) http.Handler {
	retrySeconds := strconv.Itoa(max(1, int(retryAfter.Seconds())))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.GetLoggerFromContext(r.Context())
			ip := ClientIP(r)

			allowed, err := limiter.Allow(r.Context(), purpose, ip)
			if err != nil {
				logger.LogError("failed to check rate limit", err)
			} else if !allowed {
				logger.Warn("rate limit exceeded", "ip", ip, "purpose", purpose)
				w.Header().Set("Retry-After", retrySeconds)
				httputil.RespondErrorWithCode(w, "too many requests from this IP, please try again later",
					httputil.CodeTooManyRequests, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

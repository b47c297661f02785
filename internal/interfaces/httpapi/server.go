package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
)

type RouterConfig struct {
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	InternalJobToken   string
	RateLimitRPS       float64
	RateLimitBurst     int
}

func NewRouter(handler *Handler, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.SwaggerEnabled)
	registerFeedRoutes(mux, handler)
	registerInternalRoutes(mux, handler, cfg.InternalJobToken)

	inner := RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux)))
	return RequestTracing(ClientIP(RequestLogging(logger, inner)))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeError(ctx, w, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

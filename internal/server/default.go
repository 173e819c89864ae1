package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/configuration"
	"github.com/iota-uz/taxdesk/pkg/httpapi"
	"github.com/iota-uz/taxdesk/pkg/middleware"
	"github.com/iota-uz/taxdesk/pkg/server"
)

type DefaultOptions struct {
	Logger         *logrus.Logger
	Configuration  *configuration.Configuration
	Application    application.Application
	RateLimitStore limiter.Store
}

// RateLimitStore picks the limiter backend, falling back to memory when redis is unreachable.
func RateLimitStore(conf *configuration.Configuration, logger *logrus.Logger) limiter.Store {
	if conf.RateLimit.Storage == "redis" {
		store, err := middleware.NewRedisStore(conf.RateLimit.RedisURL)
		if err == nil {
			return store
		}
		logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
	}
	return middleware.NewMemoryStore()
}

// SubmitLimit is the per-IP limit applied to submissions only.
func SubmitLimit(conf *configuration.Configuration, store limiter.Store) mux.MiddlewareFunc {
	if !conf.RateLimit.Enabled {
		return nil
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerPeriod: conf.RateLimit.SubmitRPM,
		Period:            time.Minute,
		Store:             store,
		RealIPHeader:      conf.RealIPHeader,
		KeyPrefix:         "submit:",
	})
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),
		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.AllowedOrigins...),
	}

	if conf.RateLimit.Enabled {
		store := options.RateLimitStore
		if store == nil {
			store = RateLimitStore(conf, options.Logger)
		}
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
				RealIPHeader:      conf.RealIPHeader,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(conf.RealIPHeader),
	)

	app.RegisterMiddleware(middlewares...)

	serverInstance := server.NewHTTPServer(app, NotFound(), MethodNotAllowed())
	return serverInstance, nil
}

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "not found", map[string]string{"path": r.URL.Path})
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, httpapi.CodeMethodNotAllowed, "method not allowed", nil)
	})
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/iota-uz/taxdesk/internal/server"
	"github.com/iota-uz/taxdesk/modules"
	"github.com/iota-uz/taxdesk/modules/servicerequests/handlers"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence"
	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/configuration"
	"github.com/iota-uz/taxdesk/pkg/eventbus"
	"github.com/iota-uz/taxdesk/pkg/logging"
	"github.com/iota-uz/taxdesk/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up OpenTelemetry if enabled
	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			ctx,
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := persistence.Open(connectCtx, conf, logger)
	cancel()
	if err != nil {
		log.Fatalf("failed to open %s store: %v", conf.Store.Backend, err)
	}
	defer store.Close()

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	limiterStore := server.RateLimitStore(conf, logger)
	if err := modules.Load(app, modules.BuiltInModules(conf, store, server.SubmitLimit(conf, limiterStore), logger)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:         logger,
		Configuration:  conf,
		Application:    app,
		RateLimitStore: limiterStore,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	logger.Info("waiting for pending notifications")
	app.Service(handlers.NotificationHandler{}).(*handlers.NotificationHandler).Wait()
}

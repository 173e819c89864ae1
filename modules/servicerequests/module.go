package servicerequests

import (
	"embed"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/handlers"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/notification"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence"
	"github.com/iota-uz/taxdesk/modules/servicerequests/presentation/controllers"
	"github.com/iota-uz/taxdesk/modules/servicerequests/services"
	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/middleware"
)

//go:embed infrastructure/persistence/schema/*.sql
var MigrationFiles embed.FS

const SchemaDir = "infrastructure/persistence/schema"

type ModuleOptions struct {
	Repository servicerequest.Repository
	StoreName  string

	Sender        notification.Sender
	Recipients    []string
	Retry         notification.RetryPolicy
	NotifyTimeout time.Duration

	Auth         middleware.AuthConfig
	AdminToken   string
	MaxBodyBytes int64
	SubmitLimit  mux.MiddlewareFunc

	// Clock overrides time.Now for the lifecycle service.
	Clock func() time.Time
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	repo := m.options.Repository
	if repo == nil {
		repo = persistence.NewInmemServiceRequestRepository()
	}
	storeName := m.options.StoreName
	if storeName == "" {
		storeName = "memory"
	}
	sender := m.options.Sender
	if sender == nil {
		sender = notification.NewLogSender(app.Logger())
	}

	var serviceOpts []services.Option
	if m.options.Clock != nil {
		serviceOpts = append(serviceOpts, services.WithClock(m.options.Clock))
	}
	notifier := handlers.RegisterNotificationHandler(app.EventPublisher(), handlers.NotificationConfig{
		Sender:     sender,
		Retry:      m.options.Retry,
		Recipients: m.options.Recipients,
		Timeout:    m.options.NotifyTimeout,
		Logger:     app.Logger(),
	})
	app.RegisterServices(
		services.NewServiceRequestService(repo, app.EventPublisher(), serviceOpts...),
		notifier,
	)

	app.RegisterControllers(
		controllers.NewServiceRequestsController(app, controllers.ServiceRequestsControllerConfig{
			BasePath:     "/api",
			Auth:         m.options.Auth,
			MaxBodyBytes: m.options.MaxBodyBytes,
			SubmitLimit:  m.options.SubmitLimit,
		}),
		controllers.NewAdminController(app, controllers.AdminControllerConfig{
			BasePath:     "/api/admin",
			Token:        m.options.AdminToken,
			MaxBodyBytes: m.options.MaxBodyBytes,
		}),
		controllers.NewHealthController(storeName),
	)
	app.Migrations().RegisterSchema(&MigrationFiles, SchemaDir)
	return nil
}

func (m *Module) Name() string {
	return "servicerequests"
}

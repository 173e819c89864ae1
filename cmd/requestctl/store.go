package main

import (
	"context"
	"time"

	"github.com/iota-uz/taxdesk/modules"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/handlers"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence"
	"github.com/iota-uz/taxdesk/modules/servicerequests/services"
	"github.com/iota-uz/taxdesk/pkg/configuration"
	"github.com/iota-uz/taxdesk/pkg/eventbus"
)

// openService connects the configured store and returns a lifecycle service
// backed by it. The caller must call the returned close func.
func openService(ctx context.Context) (*services.ServiceRequestService, func(), error) {
	conf := configuration.Use()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := persistence.Open(ctx, conf, conf.Logger())
	if err != nil {
		return nil, nil, err
	}
	svc, notifier := newService(store.Repository, modules.NotificationConfig(conf, conf.Logger()))
	return svc, func() {
		notifier.Wait()
		store.Close()
	}, nil
}

// newService subscribes the same notification handler the server runs, so
// reviews made from the command line are logged and counted like API reviews.
func newService(repo servicerequest.Repository, notify handlers.NotificationConfig) (*services.ServiceRequestService, *handlers.NotificationHandler) {
	bus := eventbus.NewEventPublisher(notify.Logger)
	notifier := handlers.RegisterNotificationHandler(bus, notify)
	return services.NewServiceRequestService(repo, bus), notifier
}

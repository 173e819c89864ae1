package modules

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/taxdesk/modules/servicerequests"
	"github.com/iota-uz/taxdesk/modules/servicerequests/handlers"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/notification"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence"
	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/configuration"
	"github.com/iota-uz/taxdesk/pkg/middleware"
)

// BuiltInModules returns the modules the server runs, wired from configuration.
func BuiltInModules(conf *configuration.Configuration, store *persistence.Store, submitLimit mux.MiddlewareFunc, logger *logrus.Logger) []application.Module {
	return []application.Module{
		servicerequests.NewModule(ServiceRequestOptions(conf, store, submitLimit, logger)),
	}
}

func ServiceRequestOptions(conf *configuration.Configuration, store *persistence.Store, submitLimit mux.MiddlewareFunc, logger *logrus.Logger) *servicerequests.ModuleOptions {
	notify := NotificationConfig(conf, logger)
	return &servicerequests.ModuleOptions{
		Repository:    store.Repository,
		StoreName:     conf.Store.Backend,
		Sender:        notify.Sender,
		Recipients:    notify.Recipients,
		Retry:         notify.Retry,
		NotifyTimeout: notify.Timeout,
		Auth: middleware.AuthConfig{
			Disabled: conf.Auth.Mode == configuration.AuthModeNone,
			Secret:   []byte(conf.Auth.JWTSecret),
			Audience: conf.Auth.Audience,
			Issuer:   conf.Auth.Issuer,
		},
		AdminToken:   conf.AdminToken,
		MaxBodyBytes: conf.MaxBodyBytes,
		SubmitLimit:  submitLimit,
	}
}

// NotificationConfig is the notifier setup shared by the server and requestctl.
func NotificationConfig(conf *configuration.Configuration, logger *logrus.Logger) handlers.NotificationConfig {
	return handlers.NotificationConfig{
		Sender:     NewSender(conf, logger),
		Recipients: conf.Notify.Recipients,
		Retry: notification.RetryPolicy{
			MaxAttempts: conf.Notify.MaxAttempts,
			BaseDelay:   conf.Notify.BaseDelay,
			MaxDelay:    conf.Notify.MaxDelay,
		},
		Timeout: time.Minute,
		Logger:  logger,
	}
}

func NewSender(conf *configuration.Configuration, logger *logrus.Logger) notification.Sender {
	if conf.Notify.Sender == configuration.SenderSMTP {
		return notification.NewSMTPSender(notification.SMTPConfig{
			Host:     conf.SMTP.Host,
			Port:     conf.SMTP.Port,
			Username: conf.SMTP.Username,
			Password: conf.SMTP.Password,
			From:     conf.SMTP.From,
			TLS:      conf.SMTP.TLS,
		})
	}
	return notification.NewLogSender(logger)
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}

package handlers

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/notification"
	"github.com/iota-uz/taxdesk/pkg/eventbus"
)

type NotificationConfig struct {
	Sender     notification.Sender
	Retry      notification.RetryPolicy
	Recipients []string
	Timeout    time.Duration
	Logger     logrus.FieldLogger
}

// NotificationHandler emails staff about submitted requests. Delivery runs in
// the background and never affects the submission that triggered it.
type NotificationHandler struct {
	publisher  eventbus.EventBus
	sender     *notification.RetryingSender
	recipients []string
	timeout    time.Duration
	logger     logrus.FieldLogger
	inflight   *sync.WaitGroup
}

func RegisterNotificationHandler(publisher eventbus.EventBus, config NotificationConfig) *NotificationHandler {
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	h := &NotificationHandler{
		publisher:  publisher,
		sender:     notification.NewRetryingSender(config.Sender, config.Retry),
		recipients: config.Recipients,
		timeout:    config.Timeout,
		logger:     config.Logger.WithField("component", "notifications"),
		inflight:   &sync.WaitGroup{},
	}
	publisher.Subscribe(h.onSubmitted)
	publisher.Subscribe(h.onStatusChanged)
	return h
}

// Wait blocks until every in-flight notification has finished.
func (h *NotificationHandler) Wait() {
	h.inflight.Wait()
}

func (h *NotificationHandler) onSubmitted(event servicerequest.SubmittedEvent) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.deliver(event)
	}()
}

func (h *NotificationHandler) deliver(event servicerequest.SubmittedEvent) {
	sr := event.Request
	logger := h.logger.WithFields(logrus.Fields{
		"service_type": sr.ServiceType(),
		"request_id":   sr.ID(),
		"user_id":      sr.UserID(),
	})

	msg, err := notification.Render(submission(event), h.recipients)
	if err != nil {
		h.fail(logger, event, 0, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	attempts, err := h.sender.Send(ctx, msg)
	if err != nil {
		h.fail(logger, event, attempts, err)
		return
	}
	getMetrics().notificationsTotal.WithLabelValues(sr.ServiceType(), "sent").Inc()
	logger.WithField("attempts", attempts).Info("staff notified")
}

func (h *NotificationHandler) fail(logger logrus.FieldLogger, event servicerequest.SubmittedEvent, attempts int, err error) {
	getMetrics().notificationsTotal.WithLabelValues(event.Request.ServiceType(), "failed").Inc()
	logger.WithError(err).WithField("attempts", attempts).Error("staff notification failed")
	h.publisher.Publish(servicerequest.NotificationFailedEvent{
		Request:  event.Request,
		Attempts: attempts,
		Err:      err,
	})
}

func (h *NotificationHandler) onStatusChanged(event servicerequest.StatusChangedEvent) {
	getMetrics().statusChangesTotal.WithLabelValues(event.Request.ServiceType(), string(event.From), string(event.To)).Inc()
	h.logger.WithFields(logrus.Fields{
		"service_type": event.Request.ServiceType(),
		"request_id":   event.Request.ID(),
		"from":         string(event.From),
		"to":           string(event.To),
	}).Info("request status changed")
}

func submission(event servicerequest.SubmittedEvent) notification.Submission {
	sr := event.Request
	payload := sr.Payload()

	var fields []notification.Field
	if def, err := servicetype.Lookup(servicetype.Type(sr.ServiceType())); err == nil {
		for _, f := range def.Fields {
			if v, ok := payload[f.Name]; ok {
				fields = append(fields, notification.Field{Label: f.Label, Value: formatValue(v)})
				delete(payload, f.Name)
			}
		}
	}
	extra := make([]string, 0, len(payload))
	for k := range payload {
		extra = append(extra, k)
	}
	slices.Sort(extra)
	for _, k := range extra {
		fields = append(fields, notification.Field{Label: k, Value: formatValue(payload[k])})
	}
	if d := sr.AgreeToDeclaration(); d != nil {
		fields = append(fields, notification.Field{Label: "Declaration accepted", Value: strconv.FormatBool(*d)})
	}

	return notification.Submission{
		Title:        event.Title,
		RequestID:    sr.ID(),
		UserID:       sr.UserID(),
		UserName:     event.User.Name(),
		UserEmail:    event.User.Email,
		Resubmission: event.Resubmission,
		ClientIP:     event.ClientIP,
		Fields:       fields,
		SubmittedAt:  sr.UpdatedAt(),
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

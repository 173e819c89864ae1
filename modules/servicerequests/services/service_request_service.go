package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/pkg/composables"
	"github.com/iota-uz/taxdesk/pkg/eventbus"
	"github.com/iota-uz/taxdesk/pkg/identity"
	"github.com/iota-uz/taxdesk/pkg/serrors"
)

var ErrMissingUser = errors.New("missing user identity")

const (
	resultCreated     = "created"
	resultResubmitted = "resubmitted"
	resultInvalid     = "invalid"
	resultLocked      = "locked"
	resultError       = "error"
)

type ExistingRequest struct {
	Exists  bool
	Request servicerequest.ServiceRequest
	Display servicerequest.DisplayState
}

type ValidationResult struct {
	Valid       bool
	FieldErrors serrors.ValidationErrors
}

type SubmitResult struct {
	Success      bool
	ID           string
	Message      string
	Resubmission bool
}

type Option func(*ServiceRequestService)

func WithClock(now func() time.Time) Option {
	return func(s *ServiceRequestService) { s.now = now }
}

// ServiceRequestService runs the request lifecycle for every service type.
type ServiceRequestService struct {
	repo      servicerequest.Repository
	publisher eventbus.EventBus
	now       func() time.Time
}

func NewServiceRequestService(repo servicerequest.Repository, publisher eventbus.EventBus, opts ...Option) *ServiceRequestService {
	s := &ServiceRequestService{
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Definitions returns the configuration record of every service type.
func (s *ServiceRequestService) Definitions() []servicetype.Definition {
	return servicetype.All()
}

// CheckExisting reports the user's request for a service type, if any.
func (s *ServiceRequestService) CheckExisting(ctx context.Context, user identity.User, t servicetype.Type) (ExistingRequest, error) {
	def, err := servicetype.Lookup(t)
	if err != nil {
		return ExistingRequest{}, err
	}
	absent := ExistingRequest{Display: def.Display(servicerequest.StatusNone)}
	if user.IsZero() {
		return absent, ErrMissingUser
	}
	sr, err := s.repo.FindByUser(ctx, def.Collection, user.ID)
	if errors.Is(err, servicerequest.ErrNotFound) {
		return absent, nil
	}
	if err != nil {
		return absent, fmt.Errorf("check existing %s: %w", t, err)
	}
	return ExistingRequest{Exists: true, Request: sr, Display: def.Display(sr.Status())}, nil
}

// Validate applies the service type's field rules without touching the store.
func (s *ServiceRequestService) Validate(t servicetype.Type, payload map[string]any) (ValidationResult, error) {
	def, err := servicetype.Lookup(t)
	if err != nil {
		return ValidationResult{}, err
	}
	errs := def.Validate(payload)
	return ValidationResult{Valid: len(errs) == 0, FieldErrors: errs}, nil
}

// DisplayState maps a status to the button state of a service type's form.
func (s *ServiceRequestService) DisplayState(t servicetype.Type, status servicerequest.Status) (servicerequest.DisplayState, error) {
	def, err := servicetype.Lookup(t)
	if err != nil {
		return servicerequest.DisplayState{}, err
	}
	return def.Display(status), nil
}

// Submit validates the payload and creates or overwrites the user's request.
// Invalid payloads come back as serrors.ValidationErrors and never reach the store.
func (s *ServiceRequestService) Submit(ctx context.Context, user identity.User, t servicetype.Type, payload map[string]any) (SubmitResult, error) {
	def, err := servicetype.Lookup(t)
	if err != nil {
		return SubmitResult{}, err
	}
	if user.IsZero() {
		return SubmitResult{}, ErrMissingUser
	}
	m := getMetrics()
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"service_type": string(t),
		"user_id":      user.ID,
	})

	if errs := def.Validate(payload); len(errs) > 0 {
		m.submissionsTotal.WithLabelValues(string(t), resultInvalid).Inc()
		return SubmitResult{Message: "Please correct the highlighted fields"}, errs
	}
	data, declaration := def.Normalize(payload)
	now := s.now()

	existing, err := s.repo.FindByUser(ctx, def.Collection, user.ID)
	switch {
	case err == nil:
	case errors.Is(err, servicerequest.ErrNotFound):
		existing = servicerequest.ServiceRequest{}
	default:
		m.lookupFailuresTotal.WithLabelValues(string(t)).Inc()
		logger.WithError(err).Warn("existing request lookup failed, treating as absent")
		existing = servicerequest.ServiceRequest{}
	}

	var saved servicerequest.ServiceRequest
	resubmission := !existing.IsZero()
	if resubmission {
		saved, err = s.resubmit(ctx, existing, data, declaration, now)
	} else {
		saved, err = s.create(ctx, def, user, data, declaration, now)
		if errors.Is(err, servicerequest.ErrDuplicate) {
			logger.Info("request created concurrently, applying as resubmission")
			resubmission = true
			existing, err = s.repo.FindByUser(ctx, def.Collection, user.ID)
			if err == nil {
				saved, err = s.resubmit(ctx, existing, data, declaration, now)
			}
		}
	}
	if err != nil {
		if errors.Is(err, servicerequest.ErrSubmissionLocked) {
			m.submissionsTotal.WithLabelValues(string(t), resultLocked).Inc()
			return SubmitResult{Message: fmt.Sprintf("Your %s request can no longer be changed", def.Title)}, err
		}
		m.submissionsTotal.WithLabelValues(string(t), resultError).Inc()
		logger.WithError(err).Error("failed to save request")
		return SubmitResult{Message: "Failed to submit request"}, fmt.Errorf("submit %s: %w", t, err)
	}

	result := resultCreated
	message := fmt.Sprintf("Your %s request has been submitted", def.Title)
	if resubmission {
		result = resultResubmitted
		message = fmt.Sprintf("Your %s request has been updated", def.Title)
	}
	m.submissionsTotal.WithLabelValues(string(t), result).Inc()
	logger.WithField("request_id", saved.ID()).Info("request " + result)

	clientIP, _ := composables.UseIP(ctx)
	s.publisher.Publish(servicerequest.SubmittedEvent{
		Request:      saved,
		Title:        def.Title,
		User:         user,
		Resubmission: resubmission,
		ClientIP:     clientIP,
	})
	return SubmitResult{Success: true, ID: saved.ID(), Message: message, Resubmission: resubmission}, nil
}

func (s *ServiceRequestService) create(
	ctx context.Context,
	def servicetype.Definition,
	user identity.User,
	data map[string]any,
	declaration *bool,
	now time.Time,
) (servicerequest.ServiceRequest, error) {
	opts := []servicerequest.Option{
		servicerequest.WithPayload(data),
		servicerequest.WithCreatedAt(now),
		servicerequest.WithUpdatedAt(now),
	}
	if declaration != nil {
		opts = append(opts, servicerequest.WithDeclaration(*declaration))
	}
	return s.repo.Create(ctx, servicerequest.New(user.ID, string(def.Type), def.Collection, opts...))
}

func (s *ServiceRequestService) resubmit(
	ctx context.Context,
	existing servicerequest.ServiceRequest,
	data map[string]any,
	declaration *bool,
	now time.Time,
) (servicerequest.ServiceRequest, error) {
	updated, err := existing.Resubmit(data, declaration, now)
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	return s.repo.Update(ctx, updated)
}

// Review applies a staff decision to a request. Reviewing with the current
// status only updates the notes.
func (s *ServiceRequestService) Review(ctx context.Context, t servicetype.Type, id string, to servicerequest.Status, notes *string) (servicerequest.ServiceRequest, error) {
	def, err := servicetype.Lookup(t)
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	if to == servicerequest.StatusNone {
		return servicerequest.ServiceRequest{}, servicerequest.ErrInvalidStatus
	}
	current, err := s.repo.GetByID(ctx, def.Collection, id)
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	reviewed, err := current.Review(to, notes, s.now())
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	if reviewed.Status() == current.Status() && reviewed.Notes() == current.Notes() {
		return current, nil
	}
	saved, err := s.repo.Update(ctx, reviewed)
	if err != nil {
		return servicerequest.ServiceRequest{}, fmt.Errorf("review %s/%s: %w", t, id, err)
	}
	getMetrics().reviewsTotal.WithLabelValues(string(t), string(to)).Inc()
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"service_type": string(t),
		"request_id":   id,
		"from":         string(current.Status()),
		"to":           string(to),
	}).Info("request reviewed")

	if current.Status() != to {
		s.publisher.Publish(servicerequest.StatusChangedEvent{Request: saved, From: current.Status(), To: to})
	}
	return saved, nil
}

// List returns a service type's requests newest first.
func (s *ServiceRequestService) List(ctx context.Context, t servicetype.Type, params *servicerequest.FindParams) ([]servicerequest.ServiceRequest, error) {
	def, err := servicetype.Lookup(t)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, def.Collection, params)
}

package servicerequest

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

type Option func(sr *ServiceRequest)

func WithID(id string) Option {
	return func(sr *ServiceRequest) { sr.id = id }
}

func WithPayload(payload map[string]any) Option {
	return func(sr *ServiceRequest) { sr.payload = maps.Clone(payload) }
}

func WithDeclaration(agreed bool) Option {
	return func(sr *ServiceRequest) {
		v := agreed
		sr.agreeToDeclaration = &v
	}
}

func WithStatus(status Status) Option {
	return func(sr *ServiceRequest) { sr.status = status }
}

func WithNotes(notes string) Option {
	return func(sr *ServiceRequest) { sr.notes = notes }
}

func WithCreatedAt(t time.Time) Option {
	return func(sr *ServiceRequest) { sr.createdAt = t }
}

func WithUpdatedAt(t time.Time) Option {
	return func(sr *ServiceRequest) { sr.updatedAt = t }
}

// ServiceRequest is a user's single request for one service type.
// Values are immutable; state changes return a modified copy.
type ServiceRequest struct {
	id                 string
	userID             string
	serviceType        string
	collection         string
	payload            map[string]any
	agreeToDeclaration *bool
	status             Status
	notes              string
	createdAt          time.Time
	updatedAt          time.Time
}

func New(userID, serviceType, collection string, opts ...Option) ServiceRequest {
	sr := ServiceRequest{
		userID:      strings.TrimSpace(userID),
		serviceType: serviceType,
		collection:  collection,
		payload:     map[string]any{},
		status:      StatusPending,
	}
	for _, opt := range opts {
		opt(&sr)
	}
	if sr.payload == nil {
		sr.payload = map[string]any{}
	}
	return sr
}

func (sr ServiceRequest) ID() string                { return sr.id }
func (sr ServiceRequest) UserID() string            { return sr.userID }
func (sr ServiceRequest) ServiceType() string       { return sr.serviceType }
func (sr ServiceRequest) Collection() string        { return sr.collection }
func (sr ServiceRequest) Payload() map[string]any   { return maps.Clone(sr.payload) }
func (sr ServiceRequest) AgreeToDeclaration() *bool { return sr.agreeToDeclaration }
func (sr ServiceRequest) Status() Status            { return sr.status }
func (sr ServiceRequest) Notes() string             { return sr.notes }
func (sr ServiceRequest) CreatedAt() time.Time      { return sr.createdAt }
func (sr ServiceRequest) UpdatedAt() time.Time      { return sr.updatedAt }
func (sr ServiceRequest) IsZero() bool              { return sr.id == "" && sr.userID == "" }

// Stamp sets the identity and timestamps a store assigns on create.
func (sr ServiceRequest) Stamp(id string, now time.Time) ServiceRequest {
	sr.id = id
	sr.createdAt = now
	sr.updatedAt = now
	return sr
}

// Resubmit replaces the payload and puts the request back to pending.
// id and createdAt are kept.
func (sr ServiceRequest) Resubmit(payload map[string]any, declaration *bool, now time.Time) (ServiceRequest, error) {
	if sr.status.Locked() {
		return sr, fmt.Errorf("%w: status is %s", ErrSubmissionLocked, sr.status)
	}
	sr.payload = maps.Clone(payload)
	if sr.payload == nil {
		sr.payload = map[string]any{}
	}
	if declaration != nil {
		v := *declaration
		sr.agreeToDeclaration = &v
	} else {
		sr.agreeToDeclaration = nil
	}
	sr.status = StatusPending
	sr.updatedAt = now
	return sr, nil
}

// Review applies a staff decision. notes nil leaves the existing notes alone.
func (sr ServiceRequest) Review(to Status, notes *string, now time.Time) (ServiceRequest, error) {
	if !CanReview(sr.status, to) {
		return sr, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sr.status, to)
	}
	changed := sr.status != to
	sr.status = to
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		changed = changed || trimmed != sr.notes
		sr.notes = trimmed
	}
	if changed {
		sr.updatedAt = now
	}
	return sr, nil
}

package persistence

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence/models"
)

// ToDBServiceRequest maps a domain entity to a storage model
func ToDBServiceRequest(sr servicerequest.ServiceRequest) models.ServiceRequest {
	var notes *string
	if n := sr.Notes(); n != "" {
		notes = &n
	}
	return models.ServiceRequest{
		ID:                 sr.ID(),
		Collection:         sr.Collection(),
		UserID:             sr.UserID(),
		ServiceType:        sr.ServiceType(),
		Payload:            sr.Payload(),
		AgreeToDeclaration: sr.AgreeToDeclaration(),
		Status:             string(sr.Status()),
		Notes:              notes,
		CreatedAt:          sr.CreatedAt().UTC(),
		UpdatedAt:          sr.UpdatedAt().UTC(),
	}
}

// ToDomainServiceRequest maps a storage model to a domain entity
func ToDomainServiceRequest(collection string, m models.ServiceRequest) (servicerequest.ServiceRequest, error) {
	status, err := servicerequest.ParseStatus(m.Status)
	if err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrapf(err, "service request %s", m.ID)
	}
	opts := []servicerequest.Option{
		servicerequest.WithID(m.ID),
		servicerequest.WithPayload(m.Payload),
		servicerequest.WithStatus(status),
		servicerequest.WithCreatedAt(m.CreatedAt.UTC()),
		servicerequest.WithUpdatedAt(m.UpdatedAt.UTC()),
	}
	if m.AgreeToDeclaration != nil {
		opts = append(opts, servicerequest.WithDeclaration(*m.AgreeToDeclaration))
	}
	if m.Notes != nil {
		opts = append(opts, servicerequest.WithNotes(*m.Notes))
	}
	return servicerequest.New(m.UserID, m.ServiceType, collection, opts...), nil
}

func sortNewestFirst(items []servicerequest.ServiceRequest) {
	slices.SortStableFunc(items, func(a, b servicerequest.ServiceRequest) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})
}

func filterAndLimit(items []servicerequest.ServiceRequest, params *servicerequest.FindParams) []servicerequest.ServiceRequest {
	sortNewestFirst(items)
	if params == nil {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if params.Status != servicerequest.StatusNone && it.Status() != params.Status {
			continue
		}
		out = append(out, it)
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out
}

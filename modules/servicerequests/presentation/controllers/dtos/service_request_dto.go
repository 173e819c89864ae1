package dtos

import (
	"time"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/pkg/serrors"
)

type ServiceRequest struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"userId"`
	ServiceType        string         `json:"serviceType"`
	Status             string         `json:"status"`
	Payload            map[string]any `json:"payload"`
	AgreeToDeclaration *bool          `json:"agreeToDeclaration,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

type SubmitResponse struct {
	Success     bool                     `json:"success"`
	ID          string                   `json:"id,omitempty"`
	Message     string                   `json:"message,omitempty"`
	FieldErrors serrors.ValidationErrors `json:"fieldErrors,omitempty"`
}

type ExistingResponse struct {
	Exists  bool                        `json:"exists"`
	Data    *ServiceRequest             `json:"data,omitempty"`
	Display servicerequest.DisplayState `json:"display"`
	Warning string                      `json:"warning,omitempty"`
}

type DefinitionsResponse struct {
	ServiceTypes []Definition `json:"serviceTypes"`
}

type Definition struct {
	servicetype.Definition
	PayloadKey string `json:"payloadKey"`
}

type ReviewRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

type ListResponse struct {
	Items []ServiceRequest `json:"items"`
	Total int              `json:"total"`
}

func ToServiceRequest(sr servicerequest.ServiceRequest) ServiceRequest {
	return ServiceRequest{
		ID:                 sr.ID(),
		UserID:             sr.UserID(),
		ServiceType:        sr.ServiceType(),
		Status:             string(sr.Status()),
		Payload:            sr.Payload(),
		AgreeToDeclaration: sr.AgreeToDeclaration(),
		Notes:              sr.Notes(),
		CreatedAt:          sr.CreatedAt(),
		UpdatedAt:          sr.UpdatedAt(),
	}
}

func ToDefinitions(defs []servicetype.Definition) DefinitionsResponse {
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		out = append(out, Definition{Definition: d, PayloadKey: d.PayloadKey()})
	}
	return DefinitionsResponse{ServiceTypes: out}
}

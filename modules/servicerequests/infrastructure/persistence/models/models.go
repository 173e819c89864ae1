package models

import (
	"time"
)

// ServiceRequest is the stored document shape. JSON tags are used by the
// redis and supabase stores, bson tags by mongo.
type ServiceRequest struct {
	ID                 string         `json:"id,omitempty" bson:"_id"`
	Collection         string         `json:"collection,omitempty" bson:"-"`
	UserID             string         `json:"user_id" bson:"userId"`
	ServiceType        string         `json:"service_type" bson:"serviceType"`
	Payload            map[string]any `json:"payload" bson:"payload"`
	AgreeToDeclaration *bool          `json:"agree_to_declaration,omitempty" bson:"agreeToDeclaration,omitempty"`
	Status             string         `json:"status" bson:"status"`
	Notes              *string        `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt          time.Time      `json:"created_at" bson:"createdAt"`
	UpdatedAt          time.Time      `json:"updated_at" bson:"updatedAt"`
}

package servicerequest

import "github.com/iota-uz/taxdesk/pkg/identity"

// SubmittedEvent is published after a create or resubmission is stored.
// ClientIP is empty outside an HTTP request.
type SubmittedEvent struct {
	Request      ServiceRequest
	Title        string
	User         identity.User
	Resubmission bool
	ClientIP     string
}

type StatusChangedEvent struct {
	Request ServiceRequest
	From    Status
	To      Status
}

type NotificationFailedEvent struct {
	Request  ServiceRequest
	Attempts int
	Err      error
}

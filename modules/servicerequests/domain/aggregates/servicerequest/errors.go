package servicerequest

import "errors"

var (
	ErrNotFound          = errors.New("service request not found")
	ErrDuplicate         = errors.New("service request already exists for this user")
	ErrSubmissionLocked  = errors.New("service request can no longer be changed")
	ErrInvalidTransition = errors.New("invalid service request status transition")
	ErrInvalidStatus     = errors.New("invalid service request status")
)

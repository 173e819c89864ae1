package servicerequest

import (
	"fmt"
	"strings"
)

type Status string

const (
	// StatusNone stands for "no record yet".
	StatusNone       Status = ""
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

func ParseStatus(v string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(v))); s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusRejected:
		return s, nil
	default:
		return StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
}

func (s Status) String() string { return string(s) }

// Locked reports whether the owner can no longer change the request.
func (s Status) Locked() bool {
	return s == StatusInProgress || s == StatusCompleted
}

var reviewTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusRejected},
	StatusInProgress: {StatusCompleted, StatusRejected},
}

// CanReview reports whether staff may move a request from one status to another.
// Keeping the same status is always allowed so notes can be edited.
func CanReview(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range reviewTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Labels are the call-to-action captions a service type shows per state.
type Labels struct {
	DefaultText   string `json:"defaultText"`
	PendingText   string `json:"pendingText"`
	RejectedText  string `json:"rejectedText"`
	CompletedText string `json:"completedText"`
}

type DisplayState struct {
	ActionEnabled bool   `json:"actionEnabled"`
	Label         string `json:"label"`
}

// DisplayFor maps a status to what the form shows. StatusNone means no record.
func DisplayFor(status Status, labels Labels) DisplayState {
	switch status {
	case StatusPending:
		return DisplayState{ActionEnabled: true, Label: labels.PendingText}
	case StatusRejected:
		return DisplayState{ActionEnabled: true, Label: labels.RejectedText}
	case StatusInProgress, StatusCompleted:
		return DisplayState{ActionEnabled: false, Label: labels.CompletedText}
	default:
		return DisplayState{ActionEnabled: true, Label: labels.DefaultText}
	}
}

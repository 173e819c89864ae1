// Package identity describes the authenticated client as supplied by the identity provider.
package identity

import "strings"

// User is passed explicitly into every lifecycle operation.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

func (u User) IsZero() bool {
	return strings.TrimSpace(u.ID) == ""
}

func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

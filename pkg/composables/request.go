package composables

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/taxdesk/pkg/constants"
	"github.com/iota-uz/taxdesk/pkg/identity"
)

var ErrNoUser = errors.New("user not found")

type Params struct {
	IP        string
	UserAgent string
	Request   *http.Request
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the request-scoped logger.
// Outside of a request it falls back to the standard logrus logger.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseUser returns the authenticated user placed in the context by the auth middleware.
func UseUser(ctx context.Context) (identity.User, error) {
	u, ok := ctx.Value(constants.UserKey).(identity.User)
	if !ok || u.IsZero() {
		return identity.User{}, ErrNoUser
	}
	return u, nil
}

func WithUser(ctx context.Context, u identity.User) context.Context {
	return context.WithValue(ctx, constants.UserKey, u)
}

// UseIP returns the IP address from the context.
// If the IP address is not found, the second return value will be false.
func UseIP(ctx context.Context) (string, bool) {
	params, ok := UseParams(ctx)
	if !ok {
		return "", false
	}
	return params.IP, true
}

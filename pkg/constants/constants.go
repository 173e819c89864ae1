package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	AppKey       ContextKey = "app"
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "requestStart"
	UserKey      ContextKey = "user"
	ParamsKey    ContextKey = "params"
)

// Validate is shared by every caller so struct and field caches are built once.
var Validate = validator.New(validator.WithRequiredStructEnabled())

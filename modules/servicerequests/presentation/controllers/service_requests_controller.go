package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/modules/servicerequests/presentation/controllers/dtos"
	"github.com/iota-uz/taxdesk/modules/servicerequests/services"
	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/composables"
	"github.com/iota-uz/taxdesk/pkg/httpapi"
	"github.com/iota-uz/taxdesk/pkg/identity"
	"github.com/iota-uz/taxdesk/pkg/middleware"
	"github.com/iota-uz/taxdesk/pkg/serrors"
)

const lookupWarning = "We could not check for an existing request. You can still submit."

type ServiceRequestsControllerConfig struct {
	BasePath     string
	Auth         middleware.AuthConfig
	MaxBodyBytes int64
	// SubmitLimit wraps POST only.
	SubmitLimit mux.MiddlewareFunc
}

type ServiceRequestsController struct {
	service  *services.ServiceRequestService
	config   ServiceRequestsControllerConfig
	basePath string
	submit   http.Handler
	check    http.Handler
}

func NewServiceRequestsController(app application.Application, config ServiceRequestsControllerConfig) application.Controller {
	if config.BasePath == "" {
		config.BasePath = "/api"
	}
	c := &ServiceRequestsController{
		service:  app.Service(services.ServiceRequestService{}).(*services.ServiceRequestService),
		config:   config,
		basePath: strings.TrimRight(config.BasePath, "/"),
	}
	authenticate := middleware.Authenticate(config.Auth)
	submit := http.Handler(http.HandlerFunc(c.Submit))
	if config.SubmitLimit != nil {
		submit = config.SubmitLimit(submit)
	}
	c.submit = authenticate(submit)
	c.check = authenticate(http.HandlerFunc(c.CheckExisting))
	return c
}

func (c *ServiceRequestsController) Key() string {
	return c.basePath
}

func (c *ServiceRequestsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/service-types", c.Definitions).Methods(http.MethodGet)
	router.HandleFunc("/{serviceType}", c.dispatch)
}

// dispatch checks the service type and method before authentication, so an
// unknown type is 404 and an unsupported method 405 regardless of the token.
func (c *ServiceRequestsController) dispatch(w http.ResponseWriter, r *http.Request) {
	if _, err := servicetype.Parse(mux.Vars(r)["serviceType"]); err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, err.Error(), nil)
		return
	}
	switch r.Method {
	case http.MethodPost:
		c.submit.ServeHTTP(w, r)
	case http.MethodGet:
		c.check.ServeHTTP(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, httpapi.CodeMethodNotAllowed, "method not allowed", nil)
	}
}

func (c *ServiceRequestsController) Definitions(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ToDefinitions(c.service.Definitions()))
}

func (c *ServiceRequestsController) Submit(w http.ResponseWriter, r *http.Request) {
	t, _ := servicetype.Parse(mux.Vars(r)["serviceType"])
	def, err := servicetype.Lookup(t)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, err.Error(), nil)
		return
	}

	var body map[string]any
	if err := httpapi.ReadJSON(w, r, c.config.MaxBodyBytes, &body); err != nil {
		writeSubmit(w, http.StatusBadRequest, dtos.SubmitResponse{Message: err.Error()})
		return
	}
	payload, ok := body[def.PayloadKey()].(map[string]any)
	if !ok {
		writeSubmit(w, http.StatusBadRequest, dtos.SubmitResponse{Message: fmt.Sprintf("%s is required", def.PayloadKey())})
		return
	}
	bodyUserID, _ := payload[servicetype.UserIDField].(string)
	bodyUserID = strings.TrimSpace(bodyUserID)
	if bodyUserID == "" {
		writeSubmit(w, http.StatusBadRequest, dtos.SubmitResponse{
			Message:     "userId is required",
			FieldErrors: serrors.ValidationErrors{servicetype.UserIDField: "userId is required"},
		})
		return
	}

	user, status, msg := c.resolveUser(r, bodyUserID)
	if status != http.StatusOK {
		writeSubmit(w, status, dtos.SubmitResponse{Message: msg})
		return
	}

	res, err := c.service.Submit(r.Context(), user, t, payload)
	if err != nil {
		logger := composables.UseLogger(r.Context())
		if fieldErrs, ok := serrors.AsValidationErrors(err); ok {
			writeSubmit(w, http.StatusBadRequest, dtos.SubmitResponse{Message: res.Message, FieldErrors: fieldErrs})
			return
		}
		switch {
		case errors.Is(err, servicerequest.ErrSubmissionLocked):
			writeSubmit(w, http.StatusConflict, dtos.SubmitResponse{Message: res.Message})
		case errors.Is(err, services.ErrMissingUser):
			writeSubmit(w, http.StatusBadRequest, dtos.SubmitResponse{Message: "userId is required"})
		default:
			logger.WithError(err).Error("submit failed")
			writeSubmit(w, http.StatusInternalServerError, dtos.SubmitResponse{Message: "Failed to submit request. Please try again."})
		}
		return
	}
	writeSubmit(w, http.StatusOK, dtos.SubmitResponse{Success: true, ID: res.ID, Message: res.Message})
}

func (c *ServiceRequestsController) CheckExisting(w http.ResponseWriter, r *http.Request) {
	t, _ := servicetype.Parse(mux.Vars(r)["serviceType"])

	queryUserID := strings.TrimSpace(r.URL.Query().Get(servicetype.UserIDField))
	user, status, msg := c.resolveUser(r, queryUserID)
	if status != http.StatusOK {
		code := httpapi.CodeBadRequest
		switch status {
		case http.StatusUnauthorized:
			code = httpapi.CodeUnauthorized
		case http.StatusForbidden:
			code = httpapi.CodeForbidden
		}
		_ = httpapi.WriteError(w, status, code, msg, nil)
		return
	}

	existing, err := c.service.CheckExisting(r.Context(), user, t)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("existing request lookup failed")
		_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ExistingResponse{Display: existing.Display, Warning: lookupWarning})
		return
	}
	resp := dtos.ExistingResponse{Exists: existing.Exists, Display: existing.Display}
	if existing.Exists {
		data := dtos.ToServiceRequest(existing.Request)
		resp.Data = &data
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, resp)
}

// resolveUser returns the acting user. claimed is the userId the client sent;
// it must match the token subject, or is trusted as-is when auth is disabled.
func (c *ServiceRequestsController) resolveUser(r *http.Request, claimed string) (identity.User, int, string) {
	if c.config.Auth.Disabled {
		if claimed == "" {
			return identity.User{}, http.StatusBadRequest, "userId is required"
		}
		return identity.User{ID: claimed}, http.StatusOK, ""
	}
	user, err := composables.UseUser(r.Context())
	if err != nil {
		return identity.User{}, http.StatusUnauthorized, "authentication required"
	}
	if claimed != "" && claimed != user.ID {
		return identity.User{}, http.StatusForbidden, "userId does not match the authenticated user"
	}
	return user, http.StatusOK, ""
}

func writeSubmit(w http.ResponseWriter, status int, resp dtos.SubmitResponse) {
	_ = httpapi.WriteJSON(w, status, resp)
}

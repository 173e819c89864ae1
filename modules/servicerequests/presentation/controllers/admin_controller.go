package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/modules/servicerequests/presentation/controllers/dtos"
	"github.com/iota-uz/taxdesk/modules/servicerequests/services"
	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/composables"
	"github.com/iota-uz/taxdesk/pkg/constants"
	"github.com/iota-uz/taxdesk/pkg/httpapi"
	"github.com/iota-uz/taxdesk/pkg/middleware"
	"github.com/iota-uz/taxdesk/pkg/serrors"
)

const maxListLimit = 500

type AdminControllerConfig struct {
	BasePath     string
	Token        string
	MaxBodyBytes int64
}

// AdminController exposes the staff side of the lifecycle: listing and review.
type AdminController struct {
	service  *services.ServiceRequestService
	config   AdminControllerConfig
	basePath string
}

func NewAdminController(app application.Application, config AdminControllerConfig) application.Controller {
	if config.BasePath == "" {
		config.BasePath = "/api/admin"
	}
	return &AdminController{
		service:  app.Service(services.ServiceRequestService{}).(*services.ServiceRequestService),
		config:   config,
		basePath: strings.TrimRight(config.BasePath, "/"),
	}
}

func (c *AdminController) Key() string {
	return c.basePath
}

func (c *AdminController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.AdminGuard(c.config.Token))
	router.HandleFunc("/{serviceType}/requests", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{serviceType}/requests/{id}", c.Review).Methods(http.MethodPatch)
}

func (c *AdminController) List(w http.ResponseWriter, r *http.Request) {
	t, err := servicetype.Parse(mux.Vars(r)["serviceType"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, err.Error(), nil)
		return
	}

	params := &servicerequest.FindParams{}
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		status, err := servicerequest.ParseStatus(v)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
			return
		}
		params.Status = status
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxListLimit {
			_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "limit must be between 1 and 500", nil)
			return
		}
		params.Limit = limit
	}

	items, err := c.service.List(r.Context(), t, params)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("list requests failed")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to list requests", nil)
		return
	}
	out := make([]dtos.ServiceRequest, 0, len(items))
	for _, sr := range items {
		out = append(out, dtos.ToServiceRequest(sr))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ListResponse{Items: out, Total: len(out)})
}

func (c *AdminController) Review(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := servicetype.Parse(vars["serviceType"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, err.Error(), nil)
		return
	}

	var dto dtos.ReviewRequest
	if err := httpapi.ReadJSON(w, r, c.config.MaxBodyBytes, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
		return
	}
	if err := constants.Validate.Struct(&dto); err != nil {
		msg, _ := serrors.ProcessValidatorErrors(err, "status", serrors.DefaultMessage)
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, msg, nil)
		return
	}
	status, err := servicerequest.ParseStatus(dto.Status)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
		return
	}

	sr, err := c.service.Review(r.Context(), t, vars["id"], status, dto.Notes)
	switch {
	case err == nil:
		_ = httpapi.WriteJSON(w, http.StatusOK, dtos.ToServiceRequest(sr))
	case errors.Is(err, servicerequest.ErrNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "request not found", nil)
	case errors.Is(err, servicerequest.ErrInvalidTransition):
		_ = httpapi.WriteError(w, http.StatusConflict, httpapi.CodeConflict, err.Error(), nil)
	case errors.Is(err, servicerequest.ErrInvalidStatus):
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("review failed")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "failed to review request", nil)
	}
}

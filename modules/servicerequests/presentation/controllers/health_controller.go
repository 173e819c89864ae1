package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/httpapi"
)

type HealthController struct {
	store string
}

func NewHealthController(store string) application.Controller {
	return &HealthController{store: store}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Get).Methods(http.MethodGet)
}

func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  c.store,
	})
}

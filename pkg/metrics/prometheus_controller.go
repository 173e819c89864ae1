package metrics

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iota-uz/taxdesk/pkg/application"
)

const DefaultPath = "/debug/prometheus"

// PrometheusController serves the default registry, which holds the
// promauto counters of every module plus the Go runtime collectors.
type PrometheusController struct {
	path    string
	handler http.Handler
}

func NewPrometheusController(path string) application.Controller {
	path = "/" + strings.Trim(path, "/")
	if path == "/" {
		path = DefaultPath
	}
	handler := promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	)
	return &PrometheusController{path: path, handler: handler}
}

func (c *PrometheusController) Key() string {
	return c.path
}

func (c *PrometheusController) Register(r *mux.Router) {
	r.Handle(c.path, c.handler).Methods(http.MethodGet)
}

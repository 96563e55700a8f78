// Package metrics expone contadores Prometheus del catálogo.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los contadores. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	registry         *prometheus.Registry
	availability     *prometheus.CounterVec
	cartItems        prometheus.Counter
	imageFailures    prometheus.Counter
	requestsByStatus *prometheus.CounterVec
}

// New registra los contadores en un registry propio.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		availability: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custom_shop",
			Name:      "availability_queries_total",
			Help:      "Available-options queries by outcome.",
		}, []string{"outcome"}),
		cartItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "custom_shop",
			Name:      "cart_items_added_total",
			Help:      "Cart items successfully added.",
		}),
		imageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "custom_shop",
			Name:      "image_store_failures_total",
			Help:      "Product images that could not be stored.",
		}),
		requestsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custom_shop",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(m.availability, m.cartItems, m.imageFailures, m.requestsByStatus)
	return m
}

func (m *Metrics) AvailabilityQuery(outcome string) {
	if m == nil {
		return
	}
	m.availability.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CartItemAdded() {
	if m == nil {
		return
	}
	m.cartItems.Inc()
}

func (m *Metrics) ImageStoreFailed() {
	if m == nil {
		return
	}
	m.imageFailures.Inc()
}

func (m *Metrics) Request(route, status string) {
	if m == nil {
		return
	}
	m.requestsByStatus.WithLabelValues(route, status).Inc()
}

// Handler sirve el formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry se usa en tests para leer los valores.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

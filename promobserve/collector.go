// Package promobserve exports container activity as Prometheus metrics.
package promobserve

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danpasecinic/thimble"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Collector holds the metrics for one or more containers. Each collector has
// its own registry so tests and multiple containers never collide.
type Collector struct {
	registry *prometheus.Registry

	Resolutions     *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	Creations       *prometheus.CounterVec
	CreateDuration  *prometheus.HistogramVec
	Disposals       *prometheus.CounterVec
	Definitions     *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_resolutions_total",
			Help:      "Total number of component resolutions",
		},
		[]string{"component", "status"},
	)

	resolveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_resolve_duration_seconds",
			Help:      "Component resolution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"component"},
	)

	creations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_creations_total",
			Help:      "Total number of component instances built",
		},
		[]string{"component", "status"},
	)

	createDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_create_duration_seconds",
			Help:      "Component build duration in seconds, dependencies included",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"component"},
	)

	disposals := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_disposals_total",
			Help:      "Total number of component disposals",
		},
		[]string{"component", "status"},
	)

	definitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_definitions_total",
			Help:      "Total number of component definitions",
		},
		[]string{"scope"},
	)

	registry.MustRegister(
		resolutions,
		resolveDuration,
		creations,
		createDuration,
		disposals,
		definitions,
	)

	return &Collector{
		registry:        registry,
		Resolutions:     resolutions,
		ResolveDuration: resolveDuration,
		Creations:       creations,
		CreateDuration:  createDuration,
		Disposals:       disposals,
		Definitions:     definitions,
	}
}

// Options returns container options that feed this collector.
func (c *Collector) Options() []thimble.Option {
	return []thimble.Option{
		thimble.WithResolveObserver(c.ObserveResolve),
		thimble.WithCreateObserver(c.ObserveCreate),
		thimble.WithDisposeObserver(c.ObserveDispose),
		thimble.WithDefineObserver(c.ObserveDefine),
	}
}

// Attach registers the collector on an existing container. Definitions made
// before the call are not counted.
func (c *Collector) Attach(container *thimble.Container) {
	container.OnResolve(c.ObserveResolve)
	container.OnCreate(c.ObserveCreate)
	container.OnDispose(c.ObserveDispose)
	container.OnDefine(c.ObserveDefine)
}

func (c *Collector) ObserveResolve(name string, duration time.Duration, err error) {
	c.Resolutions.WithLabelValues(name, status(err)).Inc()
	c.ResolveDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func (c *Collector) ObserveCreate(name string, duration time.Duration, err error) {
	c.Creations.WithLabelValues(name, status(err)).Inc()
	c.CreateDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func (c *Collector) ObserveDispose(name string, _ time.Duration, err error) {
	c.Disposals.WithLabelValues(name, status(err)).Inc()
}

func (c *Collector) ObserveDefine(def thimble.Definition) {
	c.Definitions.WithLabelValues(def.Scope.String()).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

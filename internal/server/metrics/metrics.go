// Package metrics exposes registry counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and handlers report to.
type Recorder interface {
	LookupResult(result string)
	PermissionEvaluated(level string)
	ShareEventAccepted()
	ShareEventThrottled()
	LandingRedirect(outcome string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	lookups     *prometheus.CounterVec
	permissions *prometheus.CounterVec
	shareEvents *prometheus.CounterVec
	redirects   *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinlink_profile_lookups_total",
			Help: "Profile lookups by result.",
		}, []string{"result"}),
		permissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinlink_permission_evaluations_total",
			Help: "Permission evaluations by resulting level.",
		}, []string{"level"}),
		shareEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinlink_share_events_total",
			Help: "Share events by outcome.",
		}, []string{"outcome"}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinlink_landing_redirects_total",
			Help: "Universal link landing requests by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.lookups, c.permissions, c.shareEvents, c.redirects)
	return c
}

func (c *Collector) LookupResult(result string)       { c.lookups.WithLabelValues(result).Inc() }
func (c *Collector) PermissionEvaluated(level string) { c.permissions.WithLabelValues(level).Inc() }
func (c *Collector) ShareEventAccepted()              { c.shareEvents.WithLabelValues("accepted").Inc() }
func (c *Collector) ShareEventThrottled()             { c.shareEvents.WithLabelValues("throttled").Inc() }
func (c *Collector) LandingRedirect(outcome string)   { c.redirects.WithLabelValues(outcome).Inc() }

// Handler serves the registry's metrics for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) LookupResult(string)        {}
func (Nop) PermissionEvaluated(string) {}
func (Nop) ShareEventAccepted()        {}
func (Nop) ShareEventThrottled()       {}
func (Nop) LandingRedirect(string)     {}

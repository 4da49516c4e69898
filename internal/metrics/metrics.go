// Package metrics contains the Prometheus metrics of the filtering engine and
// the HTTP server exposing them.
package metrics

import (
	"fmt"

	"github.com/AdguardTeam/adblock"
	"github.com/AdguardTeam/adblock/filterlist"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the namespace of all metrics.
const Namespace = "adblock"

// Label values of the decisions.
const (
	decisionAllowed = "allowed"
	decisionBlocked = "blocked"
)

// Engine is the Prometheus-based implementation of the [adblock.Metrics]
// interface.
type Engine struct {
	requests    *prometheus.CounterVec
	hosts       *prometheus.CounterVec
	reloads     *prometheus.CounterVec
	cssRules    prometheus.Counter
	cssPages    prometheus.Counter
	rules       *prometheus.GaugeVec
	skipped     prometheus.Gauge
	lastReloads prometheus.Gauge
}

// type check
var _ adblock.Metrics = (*Engine)(nil)

// NewEngine registers the filtering engine metrics in reg and returns a
// properly initialized *Engine.
func NewEngine(namespace string, reg prometheus.Registerer) (m *Engine, err error) {
	const subsystem = "engine"

	m = &Engine{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_total",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The number of evaluated network requests by decision.",
		}, []string{"decision"}),
		hosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "hosts_total",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The number of evaluated hostnames by decision.",
		}, []string{"decision"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "reloads_total",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The number of filter list reloads by result.",
		}, []string{"result"}),
		cssRules: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "css_rules_total",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The number of element hiding selectors collected for pages.",
		}),
		cssPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "css_pages_total",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The number of pages element hiding selectors were collected for.",
		}),
		rules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "rules",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The number of loaded rules by kind.",
		}, []string{"kind"}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "skipped_lines",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The number of lines of the loaded filter lists that could not be parsed.",
		}),
		lastReloads: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "last_reload_timestamp_seconds",
			Namespace: namespace,
			Subsystem: subsystem,
			Help:      "The time of the last successful reload.",
		}),
	}

	var errs []error
	collectors := []struct {
		c    prometheus.Collector
		name string
	}{{
		c:    m.requests,
		name: "requests_total",
	}, {
		c:    m.hosts,
		name: "hosts_total",
	}, {
		c:    m.reloads,
		name: "reloads_total",
	}, {
		c:    m.cssRules,
		name: "css_rules_total",
	}, {
		c:    m.cssPages,
		name: "css_pages_total",
	}, {
		c:    m.rules,
		name: "rules",
	}, {
		c:    m.skipped,
		name: "skipped_lines",
	}, {
		c:    m.lastReloads,
		name: "last_reload_timestamp_seconds",
	}}

	for _, c := range collectors {
		err = reg.Register(c.c)
		if err != nil {
			errs = append(errs, fmt.Errorf("registering metrics %q: %w", c.name, err))
		}
	}

	if err = errors.Join(errs...); err != nil {
		return nil, err
	}

	return m, nil
}

// decision returns the label value for the decision.
func decision(blocked bool) (d string) {
	if blocked {
		return decisionBlocked
	}

	return decisionAllowed
}

// ObserveRequest implements the [adblock.Metrics] interface for *Engine.
func (m *Engine) ObserveRequest(blocked bool) {
	m.requests.WithLabelValues(decision(blocked)).Inc()
}

// ObserveHost implements the [adblock.Metrics] interface for *Engine.
func (m *Engine) ObserveHost(blocked bool) {
	m.hosts.WithLabelValues(decision(blocked)).Inc()
}

// ObserveCSS implements the [adblock.Metrics] interface for *Engine.
func (m *Engine) ObserveCSS(n int) {
	m.cssPages.Inc()
	m.cssRules.Add(float64(n))
}

// ObserveReload implements the [adblock.Metrics] interface for *Engine.
func (m *Engine) ObserveReload(ok bool) {
	if !ok {
		m.reloads.WithLabelValues("error").Inc()

		return
	}

	m.reloads.WithLabelValues("success").Inc()
	m.lastReloads.SetToCurrentTime()
}

// SetStats implements the [adblock.Metrics] interface for *Engine.
func (m *Engine) SetStats(s filterlist.Stats) {
	m.rules.WithLabelValues("pattern").Set(float64(s.Patterns))
	m.rules.WithLabelValues("exception").Set(float64(s.Exceptions))
	m.rules.WithLabelValues("css").Set(float64(s.CSSRules))
	m.rules.WithLabelValues("css_exception").Set(float64(s.CSSExceptions))
	m.skipped.Set(float64(s.Skipped))
}

// Package metrics records derived-state maintenance activity.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for recomputes, status transitions and
// notification fan-out.
type Observer interface {
	Recomputed(aggregate string, skipped bool)
	StatusTransition(from string, elapsed time.Duration)
	NotificationsCreated(entityType string, n int)
	NotificationsHealed(entityType string, n int)
}

// PrometheusObserver exports Observer calls as Prometheus metrics.
type PrometheusObserver struct {
	recomputes    *prometheus.CounterVec
	statusElapsed *prometheus.HistogramVec
	created       *prometheus.CounterVec
	healed        *prometheus.CounterVec
}

// NewPrometheus registers the observer's collectors on reg. Collectors that
// are already registered are reused.
func NewPrometheus(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "pulseline"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Aggregate progress recomputations by aggregate and outcome.",
		}, []string{"aggregate", "outcome"}),
		statusElapsed: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "work_item_status_seconds",
			Help:      "Time a work item spent in a status before transitioning.",
			Buckets:   prometheus.ExponentialBuckets(60, 4, 8),
		}, []string{"status"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Mention notifications created.",
		}, []string{"entity_type"}),
		healed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_healed_total",
			Help:      "Orphaned notifications deleted during listing.",
		}, []string{"entity_type"}),
	}
	var err error
	if o.recomputes, err = register(reg, o.recomputes); err != nil {
		return nil, err
	}
	if o.statusElapsed, err = register(reg, o.statusElapsed); err != nil {
		return nil, err
	}
	if o.created, err = register(reg, o.created); err != nil {
		return nil, err
	}
	if o.healed, err = register(reg, o.healed); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) Recomputed(aggregate string, skipped bool) {
	if o == nil {
		return
	}
	outcome := "updated"
	if skipped {
		outcome = "skipped"
	}
	o.recomputes.WithLabelValues(aggregate, outcome).Inc()
}

func (o *PrometheusObserver) StatusTransition(from string, elapsed time.Duration) {
	if o == nil {
		return
	}
	o.statusElapsed.WithLabelValues(from).Observe(elapsed.Seconds())
}

func (o *PrometheusObserver) NotificationsCreated(entityType string, n int) {
	if o == nil || n <= 0 {
		return
	}
	o.created.WithLabelValues(entityType).Add(float64(n))
}

func (o *PrometheusObserver) NotificationsHealed(entityType string, n int) {
	if o == nil || n <= 0 {
		return
	}
	o.healed.WithLabelValues(entityType).Add(float64(n))
}

type nopObserver struct{}

// Nop returns an Observer that discards everything.
func Nop() Observer { return nopObserver{} }

func (nopObserver) Recomputed(string, bool) {}

func (nopObserver) StatusTransition(string, time.Duration) {}

func (nopObserver) NotificationsCreated(string, int) {}

func (nopObserver) NotificationsHealed(string, int) {}

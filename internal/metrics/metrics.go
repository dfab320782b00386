// Package metrics defines the Prometheus collectors for board activity and the HTTP API.
//
// Every method is safe on a nil *Metrics, so callers that do not care about metrics can pass nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop results.
const (
	DropFocused  = "focused"
	DropReorder  = "reordered"
	DropRejected = "rejected"
	DropNoop     = "noop"
)

// Metrics tracks board mutations, refused adds, save failures and HTTP traffic.
type Metrics struct {
	TasksAdded       prometheus.Counter
	CapacityRefusals prometheus.Counter
	Drops            *prometheus.CounterVec
	Completions      prometheus.Counter
	SaveFailures     prometheus.Counter
	Unlocks          prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers every collector on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		TasksAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "bowl_tasks_added_total",
			Help: "Total number of stones added",
		}),
		CapacityRefusals: f.NewCounter(prometheus.CounterOpts{
			Name: "bowl_capacity_refusals_total",
			Help: "Total number of adds refused because the guest limit was reached",
		}),
		Drops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bowl_drops_total",
			Help: "Total number of drag gestures by result",
		}, []string{"result"}),
		Completions: f.NewCounter(prometheus.CounterOpts{
			Name: "bowl_completions_total",
			Help: "Total number of bowl tasks marked done",
		}),
		SaveFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "bowl_save_failures_total",
			Help: "Total number of board writes that failed",
		}),
		Unlocks: f.NewCounter(prometheus.CounterOpts{
			Name: "bowl_pro_unlocks_total",
			Help: "Total number of completed pro unlock payments",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bowl_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bowl_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
	}
}

func (m *Metrics) IncrementTasksAdded() {
	if m != nil {
		m.TasksAdded.Inc()
	}
}

func (m *Metrics) IncrementCapacityRefusals() {
	if m != nil {
		m.CapacityRefusals.Inc()
	}
}

// IncrementDrops records a gesture outcome, one of the Drop* results.
func (m *Metrics) IncrementDrops(result string) {
	if m != nil {
		m.Drops.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementCompletions() {
	if m != nil {
		m.Completions.Inc()
	}
}

// ObserveSaveFailure matches the persist.AsyncSaver OnError hook.
func (m *Metrics) ObserveSaveFailure(error) {
	if m != nil {
		m.SaveFailures.Inc()
	}
}

func (m *Metrics) IncrementUnlocks() {
	if m != nil {
		m.Unlocks.Inc()
	}
}

// ObserveRequest records one HTTP request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

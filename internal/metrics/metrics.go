// Package metrics exports simulation activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"banksim/internal/core"
)

// Metric label values for operation outcome.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// Recorder turns events into Prometheus metrics. It owns a private
// registry so that several runs in one process never collide.
type Recorder struct {
	registry     *prometheus.Registry
	operations   *prometheus.CounterVec
	amounts      *prometheus.CounterVec
	bankBalance  *prometheus.GaugeVec
	activeActors prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banksim_operations_total",
				Help: "Total number of bank operations by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		amounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banksim_operation_amount_total",
				Help: "Total amount moved by successful operations.",
			},
			[]string{"kind"},
		),
		bankBalance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "banksim_bank_balance",
				Help: "Bank balance after the most recent operation.",
			},
			[]string{"bank"},
		),
		activeActors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "banksim_active_actors",
				Help: "Number of actor goroutines currently running.",
			},
		),
	}
	r.registry.MustRegister(r.operations, r.amounts, r.bankBalance, r.activeActors)

	// Pre-initialize label combinations so they appear before the first event
	for _, kind := range []core.Kind{core.KindDeposit, core.KindWithdraw} {
		r.operations.WithLabelValues(string(kind), outcomeOK)
		r.operations.WithLabelValues(string(kind), outcomeFailed)
		r.amounts.WithLabelValues(string(kind))
	}
	return r
}

// Report implements core.Reporter.
func (r *Recorder) Report(e core.Event) {
	outcome := outcomeOK
	if !e.Success {
		outcome = outcomeFailed
	}
	r.operations.WithLabelValues(string(e.Kind), outcome).Inc()
	if !e.Success || e.Bank == "" {
		return
	}
	amount, _ := e.Amount.Float64()
	r.amounts.WithLabelValues(string(e.Kind)).Add(amount)
	balance, _ := e.Balance.Float64()
	r.bankBalance.WithLabelValues(e.Bank).Set(balance)
}

// SetActiveActors records the number of running actors.
func (r *Recorder) SetActiveActors(n int) {
	r.activeActors.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the Prometheus scrape handler for this recorder.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Router serves /metrics and a /healthz probe for the optional listener.
func (r *Recorder) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Handle("/metrics", r.Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

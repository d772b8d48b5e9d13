package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

type Metrics struct {
	reg *prometheus.Registry

	SalesSubmitted       prometheus.Counter
	ItemTransitions      *prometheus.CounterVec
	EventsRecorded       prometheus.Counter
	EventHandlerFailures prometheus.Counter
	DispatchSettled      *prometheus.CounterVec
	RegisterPostings     *prometheus.CounterVec
	PushClients          prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		SalesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Name: "sales_submitted_total",
			Help: "Sales submitted to the fulfillment queues.",
		}),
		ItemTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos", Name: "item_transitions_total",
			Help: "Sale item status transitions by target status.",
		}, []string{"status"}),
		EventsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Name: "events_recorded_total",
			Help: "Sale update events recorded in the event buffer.",
		}),
		EventHandlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Name: "event_handler_failures_total",
			Help: "Event subscribers that returned an error or panicked.",
		}),
		DispatchSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos", Name: "dispatch_jobs_settled_total",
			Help: "Dispatch jobs settled by kind and final status.",
		}, []string{"kind", "status"}),
		RegisterPostings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos", Name: "register_postings_total",
			Help: "Sales posted to the cash register by payment method.",
		}, []string{"method"}),
		PushClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pos", Name: "push_clients",
			Help: "Connected websocket push clients.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SalesSubmitted, m.ItemTransitions, m.EventsRecorded, m.EventHandlerFailures,
		m.DispatchSettled, m.RegisterPostings, m.PushClients,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Notifier counts fulfillment activity. Plug it into fulfillment.Service.Notifiers.
func (m *Metrics) Notifier() fulfillment.Notifier { return notifier{m} }

type notifier struct{ m *Metrics }

func (n notifier) SaleSubmitted(context.Context, fulfillment.Sale) { n.m.SalesSubmitted.Inc() }

func (n notifier) ItemAdvanced(_ context.Context, _ fulfillment.Sale, it fulfillment.SaleItem) {
	n.m.ItemTransitions.WithLabelValues(string(it.Status)).Inc()
}

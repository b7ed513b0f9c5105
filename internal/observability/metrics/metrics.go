package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for lifecycle transitions.
type BookingMetrics struct {
	transitionsTotal  *prometheus.CounterVec
	transitionLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aashamedix",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Total lifecycle transition attempts",
		}, []string{"target_status", "outcome"}),
		transitionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aashamedix",
			Subsystem: "booking",
			Name:      "transition_latency_seconds",
			Help:      "Latency of lifecycle transitions including the conditional write",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target_status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.transitionLatency)
	return m
}

func (m *BookingMetrics) ObserveTransition(targetStatus, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(targetStatus, outcome).Inc()
}

func (m *BookingMetrics) ObserveTransitionLatency(targetStatus string, seconds float64) {
	if m == nil {
		return
	}
	m.transitionLatency.WithLabelValues(targetStatus).Observe(seconds)
}

// NotifyMetrics exposes counters for notification deliveries.
type NotifyMetrics struct {
	deliveriesTotal *prometheus.CounterVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aashamedix",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Terminal notification outcomes per channel",
		}, []string{"channel", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.deliveriesTotal)
	return m
}

func (m *NotifyMetrics) ObserveDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(channel, outcome).Inc()
}

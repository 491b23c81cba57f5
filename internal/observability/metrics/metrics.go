package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for slot generation and bookings.
type SchedulingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	slotGeneration    prometheus.Histogram
	slotCacheTotal    *prometheus.CounterVec
	notificationTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"result"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions",
		}, []string{"from", "to"}),
		slotGeneration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_generation_seconds",
			Help:      "Latency of generating the slot grid for one date",
			Buckets:   prometheus.DefBuckets,
		}),
		slotCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_cache_total",
			Help:      "Slot cache lookups by result",
		}, []string{"result"}),
		notificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Appointment emails by event and status",
		}, []string{"event", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.slotGeneration, m.slotCacheTotal, m.notificationTotal)
	return m
}

// ObserveBooking records a booking outcome: created, slot_unavailable, invalid_slot, rate_limited or error.
func (m *SchedulingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *SchedulingMetrics) ObserveSlotGeneration(seconds float64) {
	if m == nil {
		return
	}
	m.slotGeneration.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveSlotCache(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.slotCacheTotal.WithLabelValues(label).Inc()
}

func (m *SchedulingMetrics) ObserveNotification(event, status string) {
	if m == nil {
		return
	}
	m.notificationTotal.WithLabelValues(event, status).Inc()
}

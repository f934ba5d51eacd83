package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels used when no registry error kind applies.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics provides observability for the clinic registry.
type Metrics struct {
	// Registry operations by name and result (ok or error kind)
	Operations *prometheus.CounterVec

	// Appointment lifecycle transitions by source and target status
	Transitions *prometheus.CounterVec

	// Current appointment count by status
	Appointments *prometheus.GaugeVec
}

// New registers the registry metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_registry_operations_total",
			Help: "Total registry operations by operation and result",
		}, []string{"operation", "result"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_appointment_transitions_total",
			Help: "Appointment status transitions by source and target status",
		}, []string{"from", "to"}),

		Appointments: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clinic_appointments",
			Help: "Appointments currently held by the registry, by status",
		}, []string{"status"}),
	}
}

// ObserveOperation records the outcome of one registry operation.
func (m *Metrics) ObserveOperation(operation, result string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, result).Inc()
	}
}

// ObserveTransition records an appointment status change and moves the
// per-status gauge accordingly.
func (m *Metrics) ObserveTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
		m.Appointments.WithLabelValues(from).Dec()
		m.Appointments.WithLabelValues(to).Inc()
	}
}

// AppointmentCreated bumps the gauge for a newly scheduled appointment.
func (m *Metrics) AppointmentCreated(status string) {
	if m != nil {
		m.Appointments.WithLabelValues(status).Inc()
	}
}

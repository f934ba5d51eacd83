package clinic

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ehr/clinic/internal/platform/metrics"
	"github.com/ehr/clinic/pkg/orderedmap"
)

// slotKey identifies a doctor's (date, time) slot for double-booking checks.
type slotKey struct {
	doctorID string
	date     Date
	time     TimeOfDay
}

// Registry is the in-memory store and rule engine for patients, doctors,
// appointments and the clinical records attached to appointments.
//
// Every operation either commits fully or leaves the registry unchanged.
// A Registry is safe for concurrent use; each operation holds the lock for
// its whole check-then-mutate sequence.
type Registry struct {
	mu sync.RWMutex

	patients     *orderedmap.Map[string, Patient]
	doctors      *orderedmap.Map[string, Doctor]
	appointments *orderedmap.Map[string, Appointment]
	anamneses    *orderedmap.Map[string, Anamnesis] // keyed by appointment ID
	examRequests *orderedmap.Map[string, ExamRequest]
	certificates *orderedmap.Map[string, MedicalCertificate]

	booked map[slotKey]string // slot -> ID of the SCHEDULED appointment holding it

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for mutations and rejected operations.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		patients:     orderedmap.New[string, Patient](),
		doctors:      orderedmap.New[string, Doctor](),
		appointments: orderedmap.New[string, Appointment](),
		anamneses:    orderedmap.New[string, Anamnesis](),
		examRequests: orderedmap.New[string, ExamRequest](),
		certificates: orderedmap.New[string, MedicalCertificate](),
		booked:       make(map[slotKey]string),
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// -- Patients --

func (r *Registry) AddPatient(p Patient) (err error) {
	defer r.observe("add_patient", &err)
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.patients.Has(p.ID) {
		return duplicate("Patient with ID %s already exists", p.ID)
	}
	r.patients.Set(p.ID, p)
	r.logger.Info().Str("patient_id", p.ID).Msg("patient added")
	return nil
}

func (r *Registry) GetPatient(id string) (Patient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.patients.Get(id)
}

func (r *Registry) ListPatients() []Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.patients.Values()
}

// RemovePatient deletes a patient that holds no SCHEDULED appointment.
func (r *Registry) RemovePatient(id string) (err error) {
	defer r.observe("remove_patient", &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.patients.Has(id) {
		return notFound("Patient with ID %s not found", id)
	}
	if r.hasScheduled(func(a Appointment) bool { return a.PatientID == id }) {
		return conflict("Cannot remove patient with active appointments")
	}
	r.patients.Delete(id)
	r.logger.Info().Str("patient_id", id).Msg("patient removed")
	return nil
}

// -- Doctors --

func (r *Registry) AddDoctor(d Doctor) (err error) {
	defer r.observe("add_doctor", &err)
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doctors.Has(d.ID) {
		return duplicate("Doctor with ID %s already exists", d.ID)
	}
	r.doctors.Set(d.ID, d)
	r.logger.Info().Str("doctor_id", d.ID).Msg("doctor added")
	return nil
}

func (r *Registry) GetDoctor(id string) (Doctor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doctors.Get(id)
}

func (r *Registry) ListDoctors() []Doctor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doctors.Values()
}

// RemoveDoctor deletes a doctor that holds no SCHEDULED appointment.
func (r *Registry) RemoveDoctor(id string) (err error) {
	defer r.observe("remove_doctor", &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.doctors.Has(id) {
		return notFound("Doctor with ID %s not found", id)
	}
	if r.hasScheduled(func(a Appointment) bool { return a.DoctorID == id }) {
		return conflict("Cannot remove doctor with active appointments")
	}
	r.doctors.Delete(id)
	r.logger.Info().Str("doctor_id", id).Msg("doctor removed")
	return nil
}

// -- Appointments --

// ScheduleAppointment books a new SCHEDULED appointment. Only SCHEDULED
// appointments occupy a slot, so a cancelled or completed appointment at the
// same doctor, date and time does not block a new booking.
func (r *Registry) ScheduleAppointment(id, patientID, doctorID string, date Date, at TimeOfDay, description string) (_ Appointment, err error) {
	defer r.observe("schedule_appointment", &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.appointments.Has(id) {
		return Appointment{}, duplicate("Appointment with ID %s already exists", id)
	}
	if !r.patients.Has(patientID) {
		return Appointment{}, notFound("Patient with ID %s not found", patientID)
	}
	if !r.doctors.Has(doctorID) {
		return Appointment{}, notFound("Doctor with ID %s not found", doctorID)
	}
	if !date.Valid() {
		return Appointment{}, invalid("date", "Invalid appointment date "+date.String())
	}
	if !at.Valid() {
		return Appointment{}, invalid("time", "Invalid appointment time "+at.String())
	}

	appt := Appointment{
		ID:          id,
		PatientID:   patientID,
		DoctorID:    doctorID,
		Date:        date,
		Time:        at,
		Status:      StatusScheduled,
		Description: description,
	}
	if holder, taken := r.booked[appt.slot()]; taken {
		r.logger.Debug().Str("appointment_id", id).Str("held_by", holder).Msg("slot already booked")
		return Appointment{}, conflict("Doctor is not available at this time")
	}

	r.appointments.Set(id, appt)
	r.booked[appt.slot()] = id
	r.metrics.AppointmentCreated(StatusScheduled.String())
	r.logger.Info().
		Str("appointment_id", id).
		Str("patient_id", patientID).
		Str("doctor_id", doctorID).
		Str("date", date.String()).
		Str("time", at.String()).
		Msg("appointment scheduled")
	return appt, nil
}

// CancelAppointment cancels an appointment and returns its new state.
func (r *Registry) CancelAppointment(id string) (_ Appointment, err error) {
	defer r.observe("cancel_appointment", &err)
	return r.transition(id, ActionCancel)
}

// CompleteAppointment completes an appointment and returns its new state.
func (r *Registry) CompleteAppointment(id string) (_ Appointment, err error) {
	defer r.observe("complete_appointment", &err)
	return r.transition(id, ActionComplete)
}

func (r *Registry) transition(id string, action Action) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments.Get(id)
	if !ok {
		return Appointment{}, notFound("Appointment with ID %s not found", id)
	}
	from := appt.Status
	if err := appt.apply(action); err != nil {
		return Appointment{}, err
	}
	if appt.Status == from {
		return appt, nil
	}

	r.appointments.Set(id, appt)
	if from == StatusScheduled && r.booked[appt.slot()] == id {
		delete(r.booked, appt.slot())
	}
	r.metrics.ObserveTransition(from.String(), appt.Status.String())
	r.logger.Info().
		Str("appointment_id", id).
		Stringer("from", from).
		Stringer("to", appt.Status).
		Msg("appointment status changed")
	return appt, nil
}

func (r *Registry) GetAppointment(id string) (Appointment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.appointments.Get(id)
}

func (r *Registry) ListAppointments() []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.appointments.Values()
}

func (r *Registry) GetAppointmentsByPatient(patientID string) (_ []Appointment, err error) {
	defer r.observe("get_appointments_by_patient", &err)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.patients.Has(patientID) {
		return nil, notFound("Patient with ID %s not found", patientID)
	}
	return r.filterAppointments(func(a Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *Registry) GetAppointmentsByDoctor(doctorID string) (_ []Appointment, err error) {
	defer r.observe("get_appointments_by_doctor", &err)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.doctors.Has(doctorID) {
		return nil, notFound("Doctor with ID %s not found", doctorID)
	}
	return r.filterAppointments(func(a Appointment) bool { return a.DoctorID == doctorID }), nil
}

// -- Clinical records --

func (r *Registry) AddAnamnesis(a Anamnesis) (err error) {
	defer r.observe("add_anamnesis", &err)
	if err := a.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.appointments.Has(a.AppointmentID) {
		return notFound("Appointment with ID %s not found", a.AppointmentID)
	}
	if r.anamneses.Has(a.AppointmentID) {
		return duplicate("Anamnesis for appointment %s already exists", a.AppointmentID)
	}
	r.anamneses.Set(a.AppointmentID, a)
	r.logger.Info().Str("appointment_id", a.AppointmentID).Msg("anamnesis added")
	return nil
}

func (r *Registry) GetAnamnesis(appointmentID string) (Anamnesis, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.anamneses.Get(appointmentID)
}

func (r *Registry) AddExamRequest(req ExamRequest) (err error) {
	defer r.observe("add_exam_request", &err)
	if err := req.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.examRequests.Has(req.ID) {
		return duplicate("Exam request with ID %s already exists", req.ID)
	}
	if !r.appointments.Has(req.AppointmentID) {
		return notFound("Appointment with ID %s not found", req.AppointmentID)
	}
	r.examRequests.Set(req.ID, req)
	r.logger.Info().
		Str("request_id", req.ID).
		Str("appointment_id", req.AppointmentID).
		Msg("exam requested")
	return nil
}

// GetExamRequestsByAppointment returns the exam requests of an appointment.
// An unknown appointment yields an empty result rather than ErrNotFound.
func (r *Registry) GetExamRequestsByAppointment(appointmentID string) []ExamRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []ExamRequest{}
	r.examRequests.Range(func(_ string, req ExamRequest) bool {
		if req.AppointmentID == appointmentID {
			out = append(out, req)
		}
		return true
	})
	return out
}

func (r *Registry) AddMedicalCertificate(c MedicalCertificate) (err error) {
	defer r.observe("add_medical_certificate", &err)
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.certificates.Has(c.ID) {
		return duplicate("Certificate with ID %s already exists", c.ID)
	}
	if !r.appointments.Has(c.AppointmentID) {
		return notFound("Appointment with ID %s not found", c.AppointmentID)
	}
	r.certificates.Set(c.ID, c)
	r.logger.Info().
		Str("certificate_id", c.ID).
		Str("appointment_id", c.AppointmentID).
		Int("days", c.Days).
		Msg("medical certificate issued")
	return nil
}

// GetMedicalCertificatesByAppointment returns the certificates of an
// appointment. An unknown appointment yields an empty result.
func (r *Registry) GetMedicalCertificatesByAppointment(appointmentID string) []MedicalCertificate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []MedicalCertificate{}
	r.certificates.Range(func(_ string, c MedicalCertificate) bool {
		if c.AppointmentID == appointmentID {
			out = append(out, c)
		}
		return true
	})
	return out
}

// -- Stats --

// Stats is a point-in-time count of registry contents.
type Stats struct {
	Patients            int            `json:"patients"`
	Doctors             int            `json:"doctors"`
	Appointments        map[string]int `json:"appointments"`
	Anamneses           int            `json:"anamneses"`
	ExamRequests        int            `json:"exam_requests"`
	MedicalCertificates int            `json:"medical_certificates"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		Patients:            r.patients.Len(),
		Doctors:             r.doctors.Len(),
		Appointments:        make(map[string]int, len(statusNames)),
		Anamneses:           r.anamneses.Len(),
		ExamRequests:        r.examRequests.Len(),
		MedicalCertificates: r.certificates.Len(),
	}
	for _, name := range statusNames {
		s.Appointments[name] = 0
	}
	r.appointments.Range(func(_ string, a Appointment) bool {
		s.Appointments[a.Status.String()]++
		return true
	})
	return s
}

// -- helpers; callers hold r.mu --

func (r *Registry) hasScheduled(match func(Appointment) bool) bool {
	found := false
	r.appointments.Range(func(_ string, a Appointment) bool {
		if a.Status == StatusScheduled && match(a) {
			found = true
			return false
		}
		return true
	})
	return found
}

func (r *Registry) filterAppointments(match func(Appointment) bool) []Appointment {
	out := []Appointment{}
	r.appointments.Range(func(_ string, a Appointment) bool {
		if match(a) {
			out = append(out, a)
		}
		return true
	})
	return out
}

func (r *Registry) observe(operation string, errp *error) {
	err := *errp
	r.metrics.ObserveOperation(operation, ResultLabel(err))
	if err != nil {
		r.logger.Debug().Err(err).Str("operation", operation).Msg("registry operation rejected")
	}
}

// ResultLabel names the outcome of a registry call for metrics and logs.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return metrics.ResultError
	}
}

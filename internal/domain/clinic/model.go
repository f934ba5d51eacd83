package clinic

import (
	"strings"
	"time"

	"github.com/ehr/clinic/internal/platform/fhir"
)

const (
	extAge       = "http://clinic.local/fhir/StructureDefinition/patient-age"
	extInsurance = "http://clinic.local/fhir/StructureDefinition/insurance-name"
)

// Patient is a registered patient. Patients are immutable once added.
type Patient struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Age           int    `json:"age" yaml:"age"`
	Gender        string `json:"gender" yaml:"gender"`
	HasInsurance  bool   `json:"has_insurance" yaml:"has_insurance"`
	InsuranceName string `json:"insurance_name,omitempty" yaml:"insurance_name"`
}

// NewPatient returns a validated Patient.
func NewPatient(id, name string, age int, gender string, hasInsurance bool, insuranceName string) (Patient, error) {
	p := Patient{
		ID:            id,
		Name:          name,
		Age:           age,
		Gender:        gender,
		HasInsurance:  hasInsurance,
		InsuranceName: insuranceName,
	}
	if err := p.Validate(); err != nil {
		return Patient{}, err
	}
	return p, nil
}

func (p Patient) Validate() error {
	if p.ID == "" {
		return invalid("id", "Patient ID cannot be empty")
	}
	if p.Name == "" {
		return invalid("name", "Patient name cannot be empty")
	}
	if p.Age < 0 {
		return invalid("age", "Age cannot be negative")
	}
	if p.HasInsurance && p.InsuranceName == "" {
		return invalid("insurance_name", "Insurance name cannot be empty if patient has insurance")
	}
	return nil
}

func (p Patient) ToFHIR() map[string]interface{} {
	age := p.Age
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.ID,
		"name":         []fhir.HumanName{{Text: p.Name}},
		"gender":       fhirGender(p.Gender),
	}
	ext := []fhir.Extension{{URL: extAge, ValueInteger: &age}}
	if p.HasInsurance {
		ext = append(ext, fhir.Extension{URL: extInsurance, ValueString: p.InsuranceName})
	}
	result["extension"] = ext
	return result
}

func fhirGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "m", "male":
		return "male"
	case "f", "female":
		return "female"
	case "":
		return "unknown"
	default:
		return "other"
	}
}

// Doctor is a practitioner who can hold appointments.
type Doctor struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Specialty string `json:"specialty" yaml:"specialty"`
}

// NewDoctor returns a validated Doctor.
func NewDoctor(id, name, specialty string) (Doctor, error) {
	d := Doctor{ID: id, Name: name, Specialty: specialty}
	if err := d.Validate(); err != nil {
		return Doctor{}, err
	}
	return d, nil
}

func (d Doctor) Validate() error {
	if d.ID == "" {
		return invalid("id", "Doctor ID cannot be empty")
	}
	if d.Name == "" {
		return invalid("name", "Doctor name cannot be empty")
	}
	if d.Specialty == "" {
		return invalid("specialty", "Specialty cannot be empty")
	}
	return nil
}

// ToFHIR renders the doctor as a Practitioner with the specialty carried as
// a qualification.
func (d Doctor) ToFHIR() map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Practitioner",
		"id":           d.ID,
		"name":         []fhir.HumanName{{Text: d.Name}},
		"qualification": []map[string]interface{}{
			{"code": fhir.CodeableConcept{Text: d.Specialty}},
		},
	}
}

// Appointment is a booked (doctor, date, time) slot for a patient. It is
// created only by Registry.ScheduleAppointment.
type Appointment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patient_id"`
	DoctorID    string            `json:"doctor_id"`
	Date        Date              `json:"date"`
	Time        TimeOfDay         `json:"time"`
	Status      AppointmentStatus `json:"status"`
	Description string            `json:"description,omitempty"`
}

// Cancel moves the appointment to Cancelled.
func (a *Appointment) Cancel() error {
	return a.apply(ActionCancel)
}

// Complete moves the appointment to Completed.
func (a *Appointment) Complete() error {
	return a.apply(ActionComplete)
}

func (a *Appointment) apply(action Action) error {
	next, err := Transition(a.Status, action)
	if err != nil {
		return err
	}
	a.Status = next
	return nil
}

func (a Appointment) slot() slotKey {
	return slotKey{doctorID: a.DoctorID, date: a.Date, time: a.Time}
}

var fhirAppointmentStatus = map[AppointmentStatus]string{
	StatusScheduled: "booked",
	StatusCompleted: "fulfilled",
	StatusCancelled: "cancelled",
}

func (a Appointment) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Appointment",
		"id":           a.ID,
		"status":       fhirAppointmentStatus[a.Status],
		"start":        At(a.Date, a.Time, time.UTC).Format("2006-01-02T15:04:05"),
		"participant": []map[string]interface{}{
			{
				"actor":  fhir.Reference{Reference: fhir.FormatReference("Patient", a.PatientID)},
				"status": "accepted",
			},
			{
				"actor":  fhir.Reference{Reference: fhir.FormatReference("Practitioner", a.DoctorID)},
				"status": "accepted",
			},
		},
	}
	if a.Description != "" {
		result["description"] = a.Description
	}
	return result
}

// Anamnesis is the clinical history note of one appointment.
type Anamnesis struct {
	AppointmentID string `json:"appointment_id"`
	Symptoms      string `json:"symptoms"`
	Diagnosis     string `json:"diagnosis"`
}

func NewAnamnesis(appointmentID, symptoms, diagnosis string) (Anamnesis, error) {
	a := Anamnesis{AppointmentID: appointmentID, Symptoms: symptoms, Diagnosis: diagnosis}
	if err := a.Validate(); err != nil {
		return Anamnesis{}, err
	}
	return a, nil
}

func (a Anamnesis) Validate() error {
	if a.AppointmentID == "" {
		return invalid("appointment_id", "Appointment ID cannot be empty")
	}
	if a.Symptoms == "" {
		return invalid("symptoms", "Symptoms cannot be empty")
	}
	return nil
}

// ExamRequest orders an exam during an appointment.
type ExamRequest struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointment_id"`
	ExamName      string `json:"exam_name"`
	Description   string `json:"description,omitempty"`
}

func NewExamRequest(id, appointmentID, examName, description string) (ExamRequest, error) {
	r := ExamRequest{ID: id, AppointmentID: appointmentID, ExamName: examName, Description: description}
	if err := r.Validate(); err != nil {
		return ExamRequest{}, err
	}
	return r, nil
}

func (r ExamRequest) Validate() error {
	if r.ID == "" {
		return invalid("id", "Request ID cannot be empty")
	}
	if r.AppointmentID == "" {
		return invalid("appointment_id", "Appointment ID cannot be empty")
	}
	if r.ExamName == "" {
		return invalid("exam_name", "Exam name cannot be empty")
	}
	return nil
}

// MedicalCertificate grants a patient a number of days of leave.
type MedicalCertificate struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointment_id"`
	Days          int    `json:"days"`
	Description   string `json:"description,omitempty"`
}

func NewMedicalCertificate(id, appointmentID string, days int, description string) (MedicalCertificate, error) {
	c := MedicalCertificate{ID: id, AppointmentID: appointmentID, Days: days, Description: description}
	if err := c.Validate(); err != nil {
		return MedicalCertificate{}, err
	}
	return c, nil
}

func (c MedicalCertificate) Validate() error {
	if c.ID == "" {
		return invalid("id", "Certificate ID cannot be empty")
	}
	if c.AppointmentID == "" {
		return invalid("appointment_id", "Appointment ID cannot be empty")
	}
	if c.Days <= 0 {
		return invalid("days", "Days must be positive")
	}
	return nil
}

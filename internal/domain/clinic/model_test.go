package clinic

import (
	"errors"
	"strings"
	"testing"
)

func TestNewPatient_Success(t *testing.T) {
	p, err := NewPatient("1", "John", 30, "M", false, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "1" || p.Name != "John" || p.Age != 30 {
		t.Errorf("unexpected patient: %+v", p)
	}
	if p.HasInsurance {
		t.Error("expected HasInsurance to be false")
	}
}

func TestNewPatient_WithInsurance(t *testing.T) {
	p, err := NewPatient("1", "John", 30, "M", true, "HealthPlus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.HasInsurance || p.InsuranceName != "HealthPlus" {
		t.Errorf("unexpected insurance fields: %+v", p)
	}
}

func TestNewPatient_ZeroAgeAllowed(t *testing.T) {
	if _, err := NewPatient("1", "Baby", 0, "F", false, ""); err != nil {
		t.Fatalf("expected age 0 to be valid, got %v", err)
	}
}

func TestNewPatient_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		pname     string
		age       int
		insured   bool
		insurance string
		field     string
		want      string
	}{
		{"empty id", "", "John", 30, false, "", "id", "Patient ID cannot be empty"},
		{"empty name", "1", "", 30, false, "", "name", "Patient name cannot be empty"},
		{"negative age", "1", "John", -1, false, "", "age", "Age cannot be negative"},
		{"insurance without name", "1", "John", 30, true, "", "insurance_name", "Insurance name cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPatient(tt.id, tt.pname, tt.age, "M", tt.insured, tt.insurance)
			assertValidation(t, err, tt.field, tt.want)
		})
	}
}

func TestNewDoctor(t *testing.T) {
	d, err := NewDoctor("1", "Dr. Smith", "Cardiology")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Specialty != "Cardiology" {
		t.Errorf("expected Cardiology, got %s", d.Specialty)
	}

	_, err = NewDoctor("", "Dr. Smith", "Cardiology")
	assertValidation(t, err, "id", "Doctor ID cannot be empty")
	_, err = NewDoctor("1", "", "Cardiology")
	assertValidation(t, err, "name", "Doctor name cannot be empty")
	_, err = NewDoctor("1", "Dr. Smith", "")
	assertValidation(t, err, "specialty", "Specialty cannot be empty")
}

func TestNewAnamnesis(t *testing.T) {
	a, err := NewAnamnesis("a1", "Headache", "")
	if err != nil {
		t.Fatalf("empty diagnosis must be allowed, got %v", err)
	}
	if a.Symptoms != "Headache" {
		t.Errorf("expected Headache, got %s", a.Symptoms)
	}

	_, err = NewAnamnesis("", "Headache", "Migraine")
	assertValidation(t, err, "appointment_id", "Appointment ID cannot be empty")
	_, err = NewAnamnesis("a1", "", "Migraine")
	assertValidation(t, err, "symptoms", "Symptoms cannot be empty")
}

func TestNewExamRequest(t *testing.T) {
	r, err := NewExamRequest("r1", "a1", "Blood Test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ExamName != "Blood Test" {
		t.Errorf("expected Blood Test, got %s", r.ExamName)
	}

	_, err = NewExamRequest("", "a1", "Blood Test", "")
	assertValidation(t, err, "id", "Request ID cannot be empty")
	_, err = NewExamRequest("r1", "", "Blood Test", "")
	assertValidation(t, err, "appointment_id", "Appointment ID cannot be empty")
	_, err = NewExamRequest("r1", "a1", "", "")
	assertValidation(t, err, "exam_name", "Exam name cannot be empty")
}

func TestNewMedicalCertificate(t *testing.T) {
	c, err := NewMedicalCertificate("c1", "a1", 1, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Days != 1 {
		t.Errorf("expected 1 day, got %d", c.Days)
	}

	_, err = NewMedicalCertificate("", "a1", 3, "")
	assertValidation(t, err, "id", "Certificate ID cannot be empty")
	_, err = NewMedicalCertificate("c1", "", 3, "")
	assertValidation(t, err, "appointment_id", "Appointment ID cannot be empty")
	_, err = NewMedicalCertificate("c1", "a1", 0, "")
	assertValidation(t, err, "days", "Days must be positive")
	_, err = NewMedicalCertificate("c1", "a1", -1, "")
	assertValidation(t, err, "days", "Days must be positive")
}

func TestAppointment_CancelAndComplete(t *testing.T) {
	a := Appointment{ID: "1", Status: StatusScheduled}
	if err := a.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusCancelled {
		t.Errorf("expected Cancelled, got %s", a.Status)
	}
	if err := a.Complete(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if a.Status != StatusCancelled {
		t.Errorf("failed transition must not change status, got %s", a.Status)
	}

	b := Appointment{ID: "2", Status: StatusScheduled}
	if err := b.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Cancel(); err == nil || !strings.Contains(err.Error(), "Cannot cancel a completed appointment") {
		t.Errorf("expected cancel-after-complete failure, got %v", err)
	}
}

func TestPatient_ToFHIR(t *testing.T) {
	p := Patient{ID: "p1", Name: "Ana", Age: 30, Gender: "F", HasInsurance: true, InsuranceName: "Unimed"}
	res := p.ToFHIR()
	if res["resourceType"] != "Patient" {
		t.Errorf("expected Patient, got %v", res["resourceType"])
	}
	if res["gender"] != "female" {
		t.Errorf("expected female, got %v", res["gender"])
	}
}

func TestAppointment_ToFHIR(t *testing.T) {
	a := Appointment{
		ID: "a1", PatientID: "p1", DoctorID: "d1",
		Date: Date{2025, 10, 1}, Time: TimeOfDay{10, 0}, Status: StatusCompleted,
	}
	res := a.ToFHIR()
	if res["status"] != "fulfilled" {
		t.Errorf("expected fulfilled, got %v", res["status"])
	}
	if res["start"] != "2025-10-01T10:00:00" {
		t.Errorf("unexpected start %v", res["start"])
	}
	if _, ok := res["description"]; ok {
		t.Error("empty description should be omitted")
	}
}

func assertValidation(t *testing.T, err error, field, msg string) {
	t.Helper()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != field {
		t.Errorf("expected field %q, got %q", field, verr.Field)
	}
	if !strings.Contains(err.Error(), msg) {
		t.Errorf("expected message containing %q, got %q", msg, err.Error())
	}
}

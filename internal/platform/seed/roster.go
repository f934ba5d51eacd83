// Package seed loads a YAML roster of patients, doctors and appointments and
// replays it through a clinic.Registry, so every registry rule applies to
// seeded data exactly as it does to API calls.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ehr/clinic/internal/domain/clinic"
)

// AppointmentEntry is an appointment as written in a roster file. Date and
// time stay strings here and are parsed when the roster is applied.
type AppointmentEntry struct {
	ID          string `yaml:"id"`
	PatientID   string `yaml:"patient_id"`
	DoctorID    string `yaml:"doctor_id"`
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Description string `yaml:"description"`
}

type Roster struct {
	Patients     []clinic.Patient   `yaml:"patients"`
	Doctors      []clinic.Doctor    `yaml:"doctors"`
	Appointments []AppointmentEntry `yaml:"appointments"`
}

// Summary counts what Apply inserted.
type Summary struct {
	Patients     int `json:"patients"`
	Doctors      int `json:"doctors"`
	Appointments int `json:"appointments"`
}

var ErrEmptyRoster = errors.New("roster has no entries")

// Load reads and parses a roster file.
func Load(path string) (Roster, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	return Parse(content)
}

// Parse decodes a roster document. Unknown keys are rejected so a typo in a
// field name does not silently drop data.
func Parse(content []byte) (Roster, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var r Roster
	if err := dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return Roster{}, ErrEmptyRoster
		}
		return Roster{}, fmt.Errorf("parse roster: %w", err)
	}
	if len(r.Patients)+len(r.Doctors)+len(r.Appointments) == 0 {
		return Roster{}, ErrEmptyRoster
	}
	return r, nil
}

// Apply inserts the roster into reg in the order patients, doctors,
// appointments, stopping at the first failure. Entries inserted before the
// failure stay in the registry. Registry errors are wrapped, so errors.Is
// still matches the registry's error kinds.
func Apply(reg *clinic.Registry, r Roster) (Summary, error) {
	var s Summary

	for _, p := range r.Patients {
		if err := reg.AddPatient(p); err != nil {
			return s, fmt.Errorf("patient %q: %w", p.ID, err)
		}
		s.Patients++
	}

	for _, d := range r.Doctors {
		if err := reg.AddDoctor(d); err != nil {
			return s, fmt.Errorf("doctor %q: %w", d.ID, err)
		}
		s.Doctors++
	}

	for _, a := range r.Appointments {
		date, err := clinic.ParseDate(a.Date)
		if err != nil {
			return s, fmt.Errorf("appointment %q: %w", a.ID, err)
		}
		at, err := clinic.ParseTimeOfDay(a.Time)
		if err != nil {
			return s, fmt.Errorf("appointment %q: %w", a.ID, err)
		}
		if _, err := reg.ScheduleAppointment(a.ID, a.PatientID, a.DoctorID, date, at, a.Description); err != nil {
			return s, fmt.Errorf("appointment %q: %w", a.ID, err)
		}
		s.Appointments++
	}

	return s, nil
}

// LoadInto is Load followed by Apply.
func LoadInto(reg *clinic.Registry, path string) (Summary, error) {
	r, err := Load(path)
	if err != nil {
		return Summary{}, err
	}
	return Apply(reg, r)
}

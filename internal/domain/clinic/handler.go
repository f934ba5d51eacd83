package clinic

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/fhir"
	"github.com/ehr/clinic/pkg/pagination"
)

type Handler struct {
	reg *Registry
}

func NewHandler(reg *Registry) *Handler {
	return &Handler{reg: reg}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.GET("/patients/:id/appointments", h.ListPatientAppointments)

	api.POST("/doctors", h.CreateDoctor)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.DELETE("/doctors/:id", h.DeleteDoctor)
	api.GET("/doctors/:id/appointments", h.ListDoctorAppointments)

	api.POST("/appointments", h.ScheduleAppointment)
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)
	api.POST("/appointments/:id/complete", h.CompleteAppointment)

	api.POST("/appointments/:id/anamnesis", h.AddAnamnesis)
	api.GET("/appointments/:id/anamnesis", h.GetAnamnesis)
	api.POST("/appointments/:id/exam-requests", h.AddExamRequest)
	api.GET("/appointments/:id/exam-requests", h.ListExamRequests)
	api.POST("/appointments/:id/certificates", h.AddMedicalCertificate)
	api.GET("/appointments/:id/certificates", h.ListMedicalCertificates)

	fhirGroup.GET("/Patient/:id", h.GetPatientFHIR)
	fhirGroup.GET("/Practitioner/:id", h.GetPractitionerFHIR)
	fhirGroup.GET("/Appointment/:id", h.GetAppointmentFHIR)
}

// Health reports registry contents for liveness checks.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"registry": h.reg.Stats(),
	})
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return badRequest("", "invalid request body")
	}
	if err := h.reg.AddPatient(p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, ok := h.reg.GetPatient(c.Param("id"))
	if !ok {
		return httpError(notFound("Patient with ID %s not found", c.Param("id")))
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, pagination.Page(h.reg.ListPatients(), pagination.FromContext(c)))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.reg.RemovePatient(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	items, err := h.reg.GetAppointmentsByPatient(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

// -- Doctor Handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return badRequest("", "invalid request body")
	}
	if err := h.reg.AddDoctor(d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, ok := h.reg.GetDoctor(c.Param("id"))
	if !ok {
		return httpError(notFound("Doctor with ID %s not found", c.Param("id")))
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	return c.JSON(http.StatusOK, pagination.Page(h.reg.ListDoctors(), pagination.FromContext(c)))
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	if err := h.reg.RemoveDoctor(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	items, err := h.reg.GetAppointmentsByDoctor(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

// -- Appointment Handlers --

type scheduleRequest struct {
	ID          string `json:"id"`
	PatientID   string `json:"patient_id"`
	DoctorID    string `json:"doctor_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

func (h *Handler) ScheduleAppointment(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("", "invalid request body")
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return badRequest("date", err.Error())
	}
	at, err := ParseTimeOfDay(req.Time)
	if err != nil {
		return badRequest("time", err.Error())
	}

	a, err := h.reg.ScheduleAppointment(req.ID, req.PatientID, req.DoctorID, date, at, req.Description)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, ok := h.reg.GetAppointment(c.Param("id"))
	if !ok {
		return httpError(notFound("Appointment with ID %s not found", c.Param("id")))
	}
	return c.JSON(http.StatusOK, a)
}

// ListAppointments lists every appointment, or only one doctor's when
// doctor_id is given.
func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		items, err := h.reg.GetAppointmentsByDoctor(doctorID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.Page(items, pg))
	}
	return c.JSON(http.StatusOK, pagination.Page(h.reg.ListAppointments(), pg))
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	a, err := h.reg.CancelAppointment(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	a, err := h.reg.CompleteAppointment(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// -- Clinical Record Handlers --

type anamnesisRequest struct {
	Symptoms  string `json:"symptoms"`
	Diagnosis string `json:"diagnosis"`
}

func (h *Handler) AddAnamnesis(c echo.Context) error {
	var req anamnesisRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("", "invalid request body")
	}
	a := Anamnesis{AppointmentID: c.Param("id"), Symptoms: req.Symptoms, Diagnosis: req.Diagnosis}
	if err := h.reg.AddAnamnesis(a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAnamnesis(c echo.Context) error {
	a, ok := h.reg.GetAnamnesis(c.Param("id"))
	if !ok {
		return httpError(notFound("Anamnesis for appointment %s not found", c.Param("id")))
	}
	return c.JSON(http.StatusOK, a)
}

type examRequestRequest struct {
	ID          string `json:"id"`
	ExamName    string `json:"exam_name"`
	Description string `json:"description"`
}

func (h *Handler) AddExamRequest(c echo.Context) error {
	var req examRequestRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("", "invalid request body")
	}
	r := ExamRequest{ID: req.ID, AppointmentID: c.Param("id"), ExamName: req.ExamName, Description: req.Description}
	if err := h.reg.AddExamRequest(r); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListExamRequests(c echo.Context) error {
	items := h.reg.GetExamRequestsByAppointment(c.Param("id"))
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

type certificateRequest struct {
	ID          string `json:"id"`
	Days        int    `json:"days"`
	Description string `json:"description"`
}

func (h *Handler) AddMedicalCertificate(c echo.Context) error {
	var req certificateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("", "invalid request body")
	}
	mc := MedicalCertificate{ID: req.ID, AppointmentID: c.Param("id"), Days: req.Days, Description: req.Description}
	if err := h.reg.AddMedicalCertificate(mc); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, mc)
}

func (h *Handler) ListMedicalCertificates(c echo.Context) error {
	items := h.reg.GetMedicalCertificatesByAppointment(c.Param("id"))
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

// -- FHIR Endpoints --

func (h *Handler) GetPatientFHIR(c echo.Context) error {
	p, ok := h.reg.GetPatient(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) GetPractitionerFHIR(c echo.Context) error {
	d, ok := h.reg.GetDoctor(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	return c.JSON(http.StatusOK, d.ToFHIR())
}

func (h *Handler) GetAppointmentFHIR(c echo.Context) error {
	a, ok := h.reg.GetAppointment(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Appointment", c.Param("id")))
	}
	return c.JSON(http.StatusOK, a.ToFHIR())
}

// -- Error mapping --

func badRequest(field, message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, fhir.ValidationOutcome(field, message))
}

// httpError maps a registry error to an *echo.HTTPError carrying an
// OperationOutcome. The registry message is passed through verbatim.
func httpError(err error) error {
	var status int
	var outcome *fhir.OperationOutcome

	switch {
	case errors.Is(err, ErrValidation):
		var field string
		var ce *Error
		if errors.As(err, &ce) {
			field = ce.Field
		}
		status, outcome = http.StatusBadRequest, fhir.ValidationOutcome(field, err.Error())
	case errors.Is(err, ErrNotFound):
		status, outcome = http.StatusNotFound, issue(fhir.IssueTypeNotFound, err)
	case errors.Is(err, ErrDuplicate):
		status, outcome = http.StatusConflict, issue(fhir.IssueTypeDuplicate, err)
	case errors.Is(err, ErrConflict):
		status, outcome = http.StatusConflict, fhir.ConflictOutcome(err.Error())
	case errors.Is(err, ErrInvalidTransition):
		status, outcome = http.StatusUnprocessableEntity, issue(fhir.IssueTypeBusinessRule, err)
	default:
		return err
	}
	return echo.NewHTTPError(status, outcome).SetInternal(err)
}

func issue(code string, err error) *fhir.OperationOutcome {
	return fhir.NewOperationOutcome(fhir.IssueSeverityError, code, err.Error())
}

package scheduling

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/pkg/pagination"
)

var errNotOwnAppointment = apperr.New(apperr.KindForbidden, "patients may only access their own appointments")

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PATCH("/appointments/:id", h.RescheduleAppointment)
	api.PATCH("/appointments/:id/status", h.SetStatus, auth.RequireRole(auth.RoleDoctor))
}

// FilterFromRequest builds a listing filter from the role and linked_id
// query parameters. A patient principal always gets its own rows, whatever
// the query says.
func FilterFromRequest(c echo.Context) (Filter, error) {
	if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok && p.IsPatient() {
		return Filter{Role: auth.RolePatient, LinkedID: p.LinkedID}, nil
	}
	f := Filter{Role: c.QueryParam("role")}
	if raw := c.QueryParam("linked_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Filter{}, apperr.Validation("linked_id must be an integer")
		}
		f.LinkedID = &id
	}
	return f, nil
}

// patientScope reports whether the caller is a patient and, if so, its own
// patient id. A patient token without a linked id owns nothing.
func patientScope(c echo.Context) (own int64, isPatient bool) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok || !p.IsPatient() {
		return 0, false
	}
	if p.LinkedID == nil {
		return 0, true
	}
	return *p.LinkedID, true
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListAppointments(c echo.Context) error {
	f, err := FilterFromRequest(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	list, err := h.svc.ListAppointments(c.Request().Context(), f)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, list)
}

type createRequest struct {
	PatientID       int64  `json:"patient_id"`
	DoctorID        int64  `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	Reason          string `json:"reason"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if own, isPatient := patientScope(c); isPatient && own != req.PatientID {
		return apperr.ToHTTP(errNotOwnAppointment)
	}
	date, err := ParseDate(req.AppointmentDate)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	id, err := h.svc.CreateAppointment(c.Request().Context(), CreateRequest{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentDate: date,
		Reason:          req.Reason,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"id": id})
}

// ownedAppointment loads the appointment and rejects patients reaching for
// someone else's.
func (h *Handler) ownedAppointment(c echo.Context) (*Appointment, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return nil, apperr.ToHTTP(err)
	}
	if own, isPatient := patientScope(c); isPatient && own != a.PatientID {
		return nil, apperr.ToHTTP(errNotOwnAppointment)
	}
	return a, nil
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.ownedAppointment(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type rescheduleRequest struct {
	AppointmentDate string `json:"appointment_date"`
	Reason          string `json:"reason"`
}

func (h *Handler) RescheduleAppointment(c echo.Context) error {
	a, err := h.ownedAppointment(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	date, err := ParseDate(req.AppointmentDate)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.RescheduleAppointment(c.Request().Context(), a.ID, date, req.Reason); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Success   bool   `json:"success"`
	InvoiceID *int64 `json:"invoice_id,omitempty"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Success: true, InvoiceID: t.InvoiceID})
}

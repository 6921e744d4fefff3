package records

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/pkg/pagination"
)

var errNotOwnChart = apperr.New(apperr.KindForbidden, "patients may only read their own records")

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/records/:patientId", h.ListByPatient)
	api.POST("/records", h.Create, auth.RequireRole(auth.RoleDoctor))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.Param("patientId"), 10, 64)
	if err != nil || patientID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok && p.IsPatient() {
		if p.LinkedID == nil || *p.LinkedID != patientID {
			return apperr.ToHTTP(errNotOwnChart)
		}
	}

	list, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, list)
}

// Create files a record. A doctor who leaves doctor_id out is recorded as
// its author.
func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok && p.Role == auth.RoleDoctor && req.DoctorID == nil {
		req.DoctorID = p.LinkedID
	}

	id, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"id": id})
}

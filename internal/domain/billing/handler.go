package billing

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/pkg/pagination"
)

var errNotOwnInvoice = apperr.New(apperr.KindForbidden, "patients may only pay their own invoices")

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/billing", h.ListInvoices)
	api.PATCH("/billing/:id/pay", h.MarkPaid)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	f, err := scheduling.FilterFromRequest(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	list, err := h.svc.ListInvoices(c.Request().Context(), f)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, list)
}

func (h *Handler) MarkPaid(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()

	if p, ok := auth.PrincipalFromContext(ctx); ok && p.IsPatient() {
		inv, err := h.svc.GetInvoice(ctx, id)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		if p.LinkedID == nil || *p.LinkedID != inv.PatientID {
			return apperr.ToHTTP(errNotOwnInvoice)
		}
	}

	if err := h.svc.MarkPaid(ctx, id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

package identity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/pkg/pagination"
)

type Handler struct {
	svc    *Service
	tokens *auth.TokenIssuer
}

func NewHandler(svc *Service, tokens *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)

	api.GET("/admins", h.ListAdmins, auth.RequireRole(auth.RoleAdmin))
	api.GET("/patients", h.ListPatients, auth.RequireRole(auth.RoleDoctor))
	api.GET("/doctors", h.ListDoctors)
	api.PATCH("/doctors/:id/fees", h.UpdateDoctorFee, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Signup(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	LinkedID *int64 `json:"linked_id"`
	Token    string `json:"token"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	token, err := h.tokens.Issue(u.ID, string(u.Role), u.LinkedID)
	if err != nil {
		return apperr.ToHTTP(apperr.Store("issue token", err))
	}
	return c.JSON(http.StatusOK, loginResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		LinkedID: u.LinkedID,
		Token:    token,
	})
}

func (h *Handler) ListAdmins(c echo.Context) error {
	admins, err := h.svc.ListAdmins(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, admins)
}

func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, patients)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return pagination.JSON(c, http.StatusOK, doctors)
}

type feeRequest struct {
	Fees float64 `json:"fees"`
}

func (h *Handler) UpdateDoctorFee(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req feeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.UpdateDoctorFee(c.Request().Context(), id, req.Fees); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

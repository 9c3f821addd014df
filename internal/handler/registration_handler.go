package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/issb-portal/registration-service/internal/dto"
	"github.com/issb-portal/registration-service/internal/models"
	"github.com/issb-portal/registration-service/internal/service"
	"github.com/labstack/echo/v4"
)

type RegistrationHandler struct {
	svc service.RegistrationService
}

func NewRegistrationHandler(svc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

func (h *RegistrationHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.POST("/:id/registrations", h.Register)
	events.GET("/:id/registrations", h.ListByEvent)

	regs := e.Group("/api/v1/registrations")
	regs.GET("/:id", h.Get)
	regs.DELETE("/:id", h.Cancel)
	regs.PUT("/:id/checkin", h.CheckIn)
	regs.PUT("/:id/checkout", h.CheckOut)
	regs.PUT("/:id/no-show", h.MarkNoShow)

	e.GET("/api/v1/members/:id/registrations", h.ListByMember)
}

func (h *RegistrationHandler) Register(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MemberID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "member_id is required")
	}

	result, err := h.svc.Register(c.Request().Context(), eventID, req.MemberID)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateRegistration) && result != nil {
			// Point the caller at the existing registration instead of
			// creating a second one.
			return c.JSON(http.StatusConflict, dto.RegisterResponse{
				Registration: dto.ToRegistrationResponse(result.Registration),
				Waitlisted:   result.Waitlisted,
			})
		}
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, dto.RegisterResponse{
		Registration: dto.ToRegistrationResponse(result.Registration),
		Waitlisted:   result.Waitlisted,
	})
}

func (h *RegistrationHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration id")
	}

	actorID := c.QueryParam("actor_id")
	if actorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actor_id is required")
	}

	result, err := h.svc.Cancel(c.Request().Context(), id, actorID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.ToCancelResponse(result))
}

func (h *RegistrationHandler) CheckIn(c echo.Context) error {
	return h.attendance(c, h.svc.CheckIn)
}

func (h *RegistrationHandler) CheckOut(c echo.Context) error {
	return h.attendance(c, h.svc.CheckOut)
}

func (h *RegistrationHandler) MarkNoShow(c echo.Context) error {
	return h.attendance(c, h.svc.MarkNoShow)
}

func (h *RegistrationHandler) attendance(c echo.Context, op func(context.Context, uint) (*models.Registration, error)) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration id")
	}

	reg, err := op(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration id")
	}

	reg, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) ListByEvent(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	var status *models.RegistrationStatus
	if s := c.QueryParam("status"); s != "" {
		rs := models.RegistrationStatus(s)
		status = &rs
	}

	regs, err := h.svc.ListByEvent(c.Request().Context(), eventID, status)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]dto.RegistrationResponse, len(regs))
	for i, r := range regs {
		resp[i] = dto.ToRegistrationResponse(&r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) ListByMember(c echo.Context) error {
	memberID := c.Param("id")
	if memberID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "member id is required")
	}

	regs, err := h.svc.ListByMember(c.Request().Context(), memberID)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]dto.RegistrationResponse, len(regs))
	for i, r := range regs {
		resp[i] = dto.ToRegistrationResponse(&r)
	}
	return c.JSON(http.StatusOK, resp)
}

func parseID(c echo.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// mapServiceError translates the service's sentinel errors to HTTP statuses.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrRegistrationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRegistrationClosed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateRegistration),
		errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, models.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrTransient):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

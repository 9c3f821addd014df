package handler

import (
	"net/http"

	"github.com/issb-portal/registration-service/internal/dto"
	"github.com/issb-portal/registration-service/internal/models"
	"github.com/issb-portal/registration-service/internal/service"
	"github.com/labstack/echo/v4"
)

type EventHandler struct {
	svc   service.EventService
	stats service.StatsService
}

func NewEventHandler(svc service.EventService, stats service.StatsService) *EventHandler {
	return &EventHandler{svc: svc, stats: stats}
}

func (h *EventHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/events")
	g.POST("", h.CreateEvent)
	g.GET("", h.ListEvents)
	g.GET("/:id", h.GetEvent)
	g.POST("/:id/publish", h.PublishEvent)
	g.GET("/:id/status", h.GetEventStatus)
	g.GET("/:id/stats", h.GetEventStats)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req dto.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Title == "" || req.OrganizerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and organizer_id are required")
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "capacity must be at least 1 when set")
	}
	if !req.EndAt.After(req.StartAt) {
		return echo.NewHTTPError(http.StatusBadRequest, "end_at must be after start_at")
	}
	if req.RegistrationDeadline != nil && req.RegistrationDeadline.After(req.StartAt) {
		return echo.NewHTTPError(http.StatusBadRequest, "registration_deadline must not be after start_at")
	}

	event := &models.Event{
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		OrganizerID:          req.OrganizerID,
		Capacity:             req.Capacity,
		Status:               models.EventDraft,
		StartAt:              req.StartAt,
		EndAt:                req.EndAt,
		RegistrationDeadline: req.RegistrationDeadline,
	}

	if err := h.svc.CreateEvent(c.Request().Context(), event); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, dto.ToEventResponse(event))
}

func (h *EventHandler) PublishEvent(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	event, err := h.svc.PublishEvent(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	event, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.svc.ListEvents(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.EventResponse, len(events))
	for i, e := range events {
		resp[i] = dto.ToEventResponse(&e)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) GetEventStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	snapshot, err := h.svc.CapacitySnapshot(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.EventStatusResponse{
		ID:             snapshot.Event.ID,
		Title:          snapshot.Event.Title,
		Status:         snapshot.Event.Status,
		Capacity:       snapshot.Event.Capacity,
		Occupancy:      snapshot.Event.Occupancy,
		SeatsRemaining: snapshot.SeatsRemaining,
		WaitlistLength: snapshot.WaitlistLength,
	})
}

func (h *EventHandler) GetEventStats(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	stats, err := h.stats.EventStats(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.ToEventStatsResponse(stats))
}

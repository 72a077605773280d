package handler

import (
	"errors"
	"net/http"

	"seat-reserve-pro/internal/middleware"
	"seat-reserve-pro/internal/model"
	"seat-reserve-pro/internal/service"
	apperrors "seat-reserve-pro/pkg/app_errors"
	"seat-reserve-pro/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventHandler struct {
	service   service.EventService
	jwtSecret string
}

func NewEventHandler(service service.EventService, jwtSecret string) *EventHandler {
	return &EventHandler{service: service, jwtSecret: jwtSecret}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1/events")
	{
		router.GET("", h.ListEvents)
		router.GET(":id", h.GetEvent)
	}

	admin := r.Group("/api/v1/events", middleware.RequireAuth(h.jwtSecret), middleware.RequireAdmin())
	{
		admin.POST("", h.CreateEvent)
		admin.PUT(":id", h.UpdateEvent)
		admin.DELETE(":id", h.DeactivateEvent)
	}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := h.service.CreateEvent(c, req)
	if err != nil {
		h.handleEventError(c, err, "CreateEvent")
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.service.ListEvents(c)
	if err != nil {
		h.handleEventError(c, err, "ListEvents")
		return
	}

	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	event, err := h.service.GetEvent(c, id)
	if err != nil {
		h.handleEventError(c, err, "GetEvent")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var params model.UpdateEventParams
	if err := BindJson(c, &params); err != nil {
		return
	}

	event, err := h.service.UpdateEvent(c, id, params)
	if err != nil {
		h.handleEventError(c, err, "UpdateEvent")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) DeactivateEvent(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeactivateEvent(c, id); err != nil {
		h.handleEventError(c, err, "DeactivateEvent")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event marked as inactive",
	})
}

func (h *EventHandler) handleEventError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventUnavailable):
		log.Warn("Event not found or inactive")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found or inactive",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

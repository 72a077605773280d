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

type BookingHandler struct {
	service   service.ReservationService
	jwtSecret string
}

func NewBookingHandler(service service.ReservationService, jwtSecret string) *BookingHandler {
	return &BookingHandler{service: service, jwtSecret: jwtSecret}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1/bookings", middleware.RequireAuth(h.jwtSecret))
	{
		router.POST("reserve", h.Reserve)
		router.GET("mybookings", h.MyBookings)
	}
}

func (h *BookingHandler) Reserve(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req model.ReserveRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.Reserve(c, userID, req)
	if err != nil {
		h.handleBookingError(c, err, "Reserve")
		return
	}

	if !result.Confirmed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success":   false,
			"message":   "Payment simulation failed. Please try again.",
			"booking":   result.Booking,
			"retriable": result.Retriable,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Booking completed and confirmed.",
		"booking":       result.Booking,
		"event_details": result.EventDetails,
	})
}

func (h *BookingHandler) MyBookings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookings, err := h.service.MyBookings(c, userID)
	if err != nil {
		h.handleBookingError(c, err, "MyBookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) handleBookingError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	if conflict, ok := apperrors.IsSeatConflict(err); ok {
		log.Warn("Seat conflict")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "One or more seats are unavailable",
			"seats": conflict.SeatIDs,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrEventUnavailable):
		log.Warn("Event not found or inactive")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found or inactive",
		})
	case errors.Is(err, apperrors.ErrInvalidSeatSelection):
		log.Warn("Invalid seat selection")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "One or more seats are invalid",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

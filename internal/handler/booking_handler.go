package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parkfinder/service-parking/internal/application"
	"github.com/parkfinder/service-parking/internal/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	interaction := r.Group("/api/v1/sessions/:id/booking")
	{
		interaction.GET("", h.GetInteraction)
		interaction.POST("/select", h.SelectSpot)
		interaction.POST("/estimate", h.EstimateFare)
		interaction.POST("/confirm", h.ConfirmBooking)
		interaction.POST("/cancel", h.CancelBooking)
	}

	bookings := r.Group("/api/v1/bookings")
	{
		bookings.GET("", h.ListBookings)
		bookings.DELETE("", h.ClearBookings)
	}
}

// GetInteraction handles GET /api/v1/sessions/:id/booking.
func (h *BookingHandler) GetInteraction(c *gin.Context) {
	result, err := h.service.GetInteraction(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SelectSpot handles POST /api/v1/sessions/:id/booking/select.
func (h *BookingHandler) SelectSpot(c *gin.Context) {
	var req application.SelectSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SelectSpot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// EstimateFare handles POST /api/v1/sessions/:id/booking/estimate.
func (h *BookingHandler) EstimateFare(c *gin.Context) {
	var req application.EstimateFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.EstimateFare(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ConfirmBooking handles POST /api/v1/sessions/:id/booking/confirm.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	result, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// CancelBooking handles POST /api/v1/sessions/:id/booking/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	result, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListBookings handles GET /api/v1/bookings. Newest bookings come first.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	result, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ClearBookings handles DELETE /api/v1/bookings.
func (h *BookingHandler) ClearBookings(c *gin.Context) {
	result, err := h.service.ClearBookings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

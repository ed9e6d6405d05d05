package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/service/booking"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/book", h.CreateBooking)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	// Fresh bookings and idempotent replays both answer 200; the message
	// tells them apart.
	msg := "booking confirmed"
	if result.Outcome == model.OutcomeAlreadyProcessed {
		msg = "booking already processed"
	}
	c.JSON(http.StatusOK, bookingResponse{Message: msg, BookingID: result.BookingID})
}

type bookingResponse struct {
	Message   string `json:"message"`
	BookingID string `json:"bookingId"`
}

package contact

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/service/contact"
)

type Handler struct {
	service *contact.Service
}

func NewHandler(service *contact.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/contact", h.SubmitContact)
}

func (h *Handler) SubmitContact(c *gin.Context) {
	var req model.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.Submit(c.Request.Context(), &req, c.ClientIP()); err != nil {
		handler.RespondError(c, err)
		return
	}

	// Accepted for delivery, not necessarily delivered yet.
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"accepted": true}))
}

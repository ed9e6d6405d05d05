// Package admin exposes the operational endpoints: login and the
// disabled-dates refresh that admins trigger after editing blocked days in
// the record store.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/internal/cache"
	"github.com/slotwise/booking-api/internal/handler"
	"github.com/slotwise/booking-api/internal/middleware"
	"github.com/slotwise/booking-api/pkg/auth"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/security"
)

type Handler struct {
	passwordHash string
	hasher       security.PasswordHasher
	tokens       auth.TokenService
	disabled     *cache.DisabledDates
	logger       *logger.Logger
}

func NewHandler(
	passwordHash string,
	hasher security.PasswordHasher,
	tokens auth.TokenService,
	disabled *cache.DisabledDates,
	log *logger.Logger,
) *Handler {
	return &Handler{
		passwordHash: passwordHash,
		hasher:       hasher,
		tokens:       tokens,
		disabled:     disabled,
		logger:       log,
	}
}

// RegisterRoutes mounts login publicly and the refresh behind token auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	admin := rg.Group("/admin")
	admin.POST("/login", h.Login)

	protected := admin.Group("")
	protected.Use(authMW.Authenticate())
	protected.POST("/refresh-disabled-dates", h.RefreshDisabledDates)
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.hasher.Compare(h.passwordHash, req.Password); err != nil {
		h.logger.Warn("admin login rejected", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid credentials"))
		return
	}

	token, err := h.tokens.GenerateToken("admin")
	if err != nil {
		h.logger.Error(err, "failed to issue admin token")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"token": token}))
}

func (h *Handler) RefreshDisabledDates(c *gin.Context) {
	count, err := h.disabled.Reload(c.Request.Context())
	if err != nil {
		h.logger.Error(err, "disabled dates refresh failed")
		c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse("record store unavailable"))
		return
	}

	h.logger.Info("disabled dates refreshed", "count", count)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"count": count}))
}

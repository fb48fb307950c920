package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiceshelf/backend/internal/application/settings"
	"github.com/spiceshelf/backend/internal/domain/billing"
)

// SettingsHandler exposes the admin boleto configuration endpoints
type SettingsHandler struct {
	BaseHandler
	service *settings.Service
	logger  *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(service *settings.Service, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{service: service, logger: logger}
}

// RegisterRoutes registers settings routes on the admin group
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings/boleto", h.GetConfig)
	rg.PUT("/settings/boleto", h.SaveConfig)
}

// GetConfig returns the stored configuration with secrets redacted
func (h *SettingsHandler) GetConfig(c *gin.Context) {
	view, err := h.service.GetConfig(c.Request.Context())
	if err != nil {
		if errors.Is(err, billing.ErrConfigMissing) {
			h.NotFound(c, "Boleto configuration has not been set up")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SaveConfig validates and stores the configuration
func (h *SettingsHandler) SaveConfig(c *gin.Context) {
	var req settings.SaveConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	actorID, actorEmail, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	view, err := h.service.SaveConfig(c.Request.Context(), &req, actorID, actorEmail)
	if err != nil {
		h.logger.Warn("boleto config save rejected",
			zap.String("actor", actorEmail),
			zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

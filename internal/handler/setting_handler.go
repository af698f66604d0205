package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
	"github.com/stemsi/exstem-cbt/internal/validator"
)

type SettingHandler struct {
	settingService *service.SettingService
	log            zerolog.Logger
}

func NewSettingHandler(settingService *service.SettingService, log zerolog.Logger) *SettingHandler {
	return &SettingHandler{
		settingService: settingService,
		log:            log.With().Str("component", "setting_handler").Logger(),
	}
}

// GetAntiCheat godoc
// GET /api/v1/admin/settings/anticheat
// Also served on /api/v1/public/settings/anticheat for the exam client.
func (h *SettingHandler) GetAntiCheat(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"anticheat": h.settingService.AntiCheatConfig(c.Request.Context())})
}

// UpdateAntiCheat godoc
// PUT /api/v1/admin/settings/anticheat
// Applies to sessions started after the change.
func (h *SettingHandler) UpdateAntiCheat(c *gin.Context) {
	var req model.UpdateAntiCheatRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cfg, err := h.settingService.UpdateAntiCheat(c.Request.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Update anti-cheat settings failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().Bool("is_active", cfg.IsActive).Int("freeze_seconds", cfg.FreezeDurationSeconds).Msg("Anti-cheat settings updated")
	response.Success(c, http.StatusOK, gin.H{"anticheat": cfg})
}

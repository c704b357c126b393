package api

import (
	"net/http"
	"strconv"

	"EncounterSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SyncHandler 手动触发采集（定时任务之外）
type SyncHandler struct {
	profiles *service.ProfileSyncService
	clips    *service.ClipSyncService
	logger   *logrus.Logger
}

func NewSyncHandler(profiles *service.ProfileSyncService, clips *service.ClipSyncService, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		profiles: profiles,
		clips:    clips,
		logger:   logger,
	}
}

// SyncProfileHandler 刷新指定玩家的关联账号、对局与关联发现
// @Summary 同步玩家资料
// @Param membership_type path int true "平台类型"
// @Param membership_id path string true "平台账号ID"
// @Success 200 {object} service.ProfileSyncResult
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /sync/profiles/{membership_type}/{membership_id} [post]
func (h *SyncHandler) SyncProfileHandler(c *gin.Context) {
	membershipType, err := strconv.Atoi(c.Param("membership_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "membership_type must be an integer"})
		return
	}
	membershipID := c.Param("membership_id")

	res, err := h.profiles.SyncProfile(c.Request.Context(), membershipType, membershipID)
	if err != nil {
		respondError(c, h.logger, "同步玩家资料失败", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SyncClipsHandler 刷新一批视频账号的录像
// @Router /sync/clips [post]
func (h *SyncHandler) SyncClipsHandler(c *gin.Context) {
	res, err := h.clips.Run(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "同步录像失败", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

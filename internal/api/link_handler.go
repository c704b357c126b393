package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"
	"EncounterSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LinkHandler 关联边的记录、举报与删除
// 请求者以 account_id（membershipType:membershipId）标识，鉴权在网关层完成
type LinkHandler struct {
	links  *service.LinkService
	logger *logrus.Logger
}

func NewLinkHandler(links *service.LinkService, logger *logrus.Logger) *LinkHandler {
	return &LinkHandler{links: links, logger: logger}
}

type recordLinkRequest struct {
	AccountID    string `json:"account_id" binding:"required"`
	Provider     string `json:"provider" binding:"required"`
	ExternalID   string `json:"external_id" binding:"required"`
	DisplayName  string `json:"display_name"`
	LoginName    string `json:"login_name"`
	ChannelToken string `json:"channel_token"`
}

type linkView struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	VideoAccountID string `json:"video_account_id"`
	Provider       string `json:"provider"`
	LinkMethod     string `json:"link_method"`
	Rejected       bool   `json:"rejected"`
}

func toLinkView(l *model.AccountLink) linkView {
	return linkView{
		ID:             l.ID,
		AccountID:      l.AccountID,
		VideoAccountID: l.VideoAccountID,
		Provider:       string(l.Provider),
		LinkMethod:     string(l.LinkMethod),
		Rejected:       l.Rejected,
	}
}

// RecordLink OAuth 授权完成后记录关联 POST /api/links
func (h *LinkHandler) RecordLink(c *gin.Context) {
	var req recordLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	video := &model.VideoAccount{
		Provider:     model.ProviderType(strings.ToLower(req.Provider)),
		ExternalID:   req.ExternalID,
		DisplayName:  req.DisplayName,
		LoginName:    strings.ToLower(req.LoginName),
		ChannelToken: req.ChannelToken,
	}
	link, err := h.links.RecordLink(c.Request.Context(), req.AccountID, video)
	if err != nil {
		respondError(c, h.logger, "记录关联失败", err)
		return
	}
	c.JSON(http.StatusOK, toLinkView(link))
}

// ReportLink 举报错误关联 POST /api/links/:link_id/report?account_id=
func (h *LinkHandler) ReportLink(c *gin.Context) {
	h.linkAction(c, "举报关联失败", h.links.ReportLink)
}

// UnreportLink 撤销举报 DELETE /api/links/:link_id/report?account_id=
func (h *LinkHandler) UnreportLink(c *gin.Context) {
	h.linkAction(c, "撤销举报失败", h.links.UnreportLink)
}

// RejectLink 所有者驳回 POST /api/links/:link_id/reject?account_id=
func (h *LinkHandler) RejectLink(c *gin.Context) {
	h.linkAction(c, "驳回关联失败", h.links.RejectLink)
}

// RemoveLink 所有者删除 DELETE /api/links/:link_id?account_id=
func (h *LinkHandler) RemoveLink(c *gin.Context) {
	requester, err := requesterOf(c)
	if err != nil {
		respondError(c, h.logger, "删除关联参数错误", err)
		return
	}
	if err := h.links.RemoveLink(c.Request.Context(), requester, c.Param("link_id")); err != nil {
		respondError(c, h.logger, "删除关联失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "关联已删除"})
}

func (h *LinkHandler) linkAction(c *gin.Context, msg string, action func(context.Context, string, string) (*model.AccountLink, error)) {
	requester, err := requesterOf(c)
	if err != nil {
		respondError(c, h.logger, msg, err)
		return
	}
	link, err := action(c.Request.Context(), requester, c.Param("link_id"))
	if err != nil {
		respondError(c, h.logger, msg, err)
		return
	}
	c.JSON(http.StatusOK, toLinkView(link))
}

// requesterOf 请求者账号：查询参数 account_id
func requesterOf(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Query("account_id"))
	if id == "" {
		return "", fmt.Errorf("account_id is required: %w", interfaces.ErrInvalidInput)
	}
	return id, nil
}

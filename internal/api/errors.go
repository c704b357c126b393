package api

import (
	"errors"
	"net/http"

	"EncounterSync/internal/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// statusOf 业务错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrLinkNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrNotLinkOwner):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrLinkNotReportable), errors.Is(err, interfaces.ErrLinkNotRemovable):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrUpstreamUnavailable), errors.Is(err, interfaces.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *logrus.Logger, msg string, err error) {
	status := statusOf(err)
	entry := logger.WithError(err).WithFields(logrus.Fields{"route": c.FullPath(), "status": status})
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Warn(msg)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

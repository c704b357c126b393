package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册全部业务路由与 /metrics
func RegisterRoutes(r *gin.Engine, encounters *EncounterHandler, links *LinkHandler, sync *SyncHandler) {
	r.Use(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.GET("/players/:membership_type/:membership_id/encounters", encounters.PlayerEncounters)
	apiGroup.GET("/encounters/cross", encounters.CrossEncounters)

	apiGroup.POST("/links", links.RecordLink)
	apiGroup.POST("/links/:link_id/report", links.ReportLink)
	apiGroup.DELETE("/links/:link_id/report", links.UnreportLink)
	apiGroup.POST("/links/:link_id/reject", links.RejectLink)
	apiGroup.DELETE("/links/:link_id", links.RemoveLink)

	r.POST("/sync/profiles/:membership_type/:membership_id", sync.SyncProfileHandler)
	r.POST("/sync/clips", sync.SyncClipsHandler)
}

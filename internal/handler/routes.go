package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Students *StudentHandler
	Query    *QueryHandler
	History  *HistoryHandler
	Reports  *ReportHandler
	System   *SystemHandler
}

// RegisterRoutes mounts probes and metrics at the root and the JSON API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.System.Health)
	r.GET("/ready", h.System.Ready)
	r.GET("/metrics", h.System.Prometheus)

	api := r.Group(prefix)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/search", h.Students.Search)
	students.GET("/export", h.Students.Export)
	students.POST("/import", h.Students.Import)
	students.GET("/:roll", h.Students.Get)
	students.PUT("/:roll", h.Students.Update)
	students.DELETE("/:roll", h.Students.Delete)

	api.POST("/query", h.Query.Execute)
	api.POST("/query/validate", h.Query.Validate)
	api.GET("/query/samples", h.Query.Samples)

	api.GET("/history", h.History.List)
	api.POST("/history/undo", h.History.Undo)

	api.GET("/reports/summary", h.Reports.Summary)
	api.GET("/reports/export", h.Reports.Export)
	api.GET("/export/:token", h.Reports.Download)

	api.GET("/system/metrics", h.System.Metrics)
}

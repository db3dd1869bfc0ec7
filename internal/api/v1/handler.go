package v1

import (
	"github.com/gin-gonic/gin"

	"finparser/internal/inference"
	"finparser/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	store    *store.Store
	registry *inference.Registry
}

// NewHandler 创建 V1 API 处理器
func NewHandler(st *store.Store, reg *inference.Registry) *Handler {
	return &Handler{
		store:    st,
		registry: reg,
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 数据导入
	router.POST("/import", h.Import)

	// 数据集查询
	router.GET("/datasets", h.ListDatasets)
	router.GET("/datasets/:id", h.GetDataset)
	router.GET("/datasets/:id/columns", h.GetDatasetColumns)
	router.POST("/datasets/:id/query", h.QueryDataset)
	router.POST("/datasets/:id/aggregate", h.AggregateDataset)

	// 单值解析
	router.POST("/parse/amount", h.ParseAmount)
	router.POST("/parse/date", h.ParseDate)
}

package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized  bool   `json:"initialized"`  // 是否已有导入数据
	DatasetCount int    `json:"datasetCount"` // 数据集总数
	LastImport   string `json:"lastImport"`   // 最后一次导入时间
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	datasets, err := h.store.ListDatasets()
	if err != nil {
		c.JSON(http.StatusOK, StatusResponse{Initialized: false})
		return
	}

	resp := StatusResponse{
		Initialized:  len(datasets) > 0,
		DatasetCount: len(datasets),
	}
	if len(datasets) > 0 {
		// 列表按创建时间倒序，首个即最近一次导入
		resp.LastImport = datasets[0].CreatedAt.Format("2006-01-02 15:04:05")
	}

	c.JSON(http.StatusOK, resp)
}

package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finparser/internal/store"
)

// ListDatasets 列出全部数据集
// GET /api/datasets
func (h *Handler) ListDatasets(c *gin.Context) {
	datasets, err := h.store.ListDatasets()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets})
}

// GetDataset 获取单个数据集
// GET /api/datasets/:id
func (h *Handler) GetDataset(c *gin.Context) {
	ds, err := h.store.GetDataset(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ds == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "数据集不存在"})
		return
	}
	c.JSON(http.StatusOK, ds)
}

// GetDatasetColumns 获取数据集的列元信息
// GET /api/datasets/:id/columns
func (h *Handler) GetDatasetColumns(c *gin.Context) {
	ds, err := h.store.GetDataset(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ds == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "数据集不存在"})
		return
	}

	cols, err := h.store.GetColumns(ds.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": cols})
}

// QueryRequest 单元格查询请求
type QueryRequest struct {
	Column     *int    `json:"column"`
	RawEquals  *string `json:"raw_equals"`
	MinNumber  *string `json:"min_number"`
	MaxNumber  *string `json:"max_number"`
	MinDate    *string `json:"min_date"` // YYYY-MM-DD
	MaxDate    *string `json:"max_date"`
	FailedOnly bool    `json:"failed_only"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

// QueryDataset 按条件查询单元格
// POST /api/datasets/:id/query
func (h *Handler) QueryDataset(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	opts := store.CellQueryOptions{
		Column:     req.Column,
		RawEquals:  req.RawEquals,
		FailedOnly: req.FailedOnly,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}

	if req.MinNumber != nil {
		n, err := decimal.NewFromString(*req.MinNumber)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的数值下界"})
			return
		}
		opts.MinNumber = &n
	}
	if req.MaxNumber != nil {
		n, err := decimal.NewFromString(*req.MaxNumber)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的数值上界"})
			return
		}
		opts.MaxNumber = &n
	}
	if req.MinDate != nil {
		t, err := time.ParseInLocation("2006-01-02", *req.MinDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的日期下界"})
			return
		}
		opts.MinDate = &t
	}
	if req.MaxDate != nil {
		t, err := time.ParseInLocation("2006-01-02", *req.MaxDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的日期上界"})
			return
		}
		opts.MaxDate = &t
	}

	cells, err := h.store.QueryCells(c.Param("id"), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cells": cells, "count": len(cells)})
}

// AggregateRequest 聚合请求
type AggregateRequest struct {
	Column  int  `json:"column"`
	GroupBy *int `json:"group_by"` // 可选的分组列
}

// AggregateDataset 对数值列做聚合，可按另一列的取值分组
// POST /api/datasets/:id/aggregate
func (h *Handler) AggregateDataset(c *gin.Context) {
	var req AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	if req.GroupBy != nil {
		groups, err := h.store.AggregateColumnBy(c.Param("id"), req.Column, req.GroupBy)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]gin.H, 0, len(groups))
		for _, g := range groups {
			out = append(out, gin.H{
				"key":   g.Key,
				"count": g.Count,
				"sum":   g.Sum.String(),
				"avg":   g.Avg.String(),
				"min":   g.Min.String(),
				"max":   g.Max.String(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"groups": out})
		return
	}

	res, err := h.store.AggregateColumn(c.Param("id"), req.Column)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": res.Count,
		"sum":   res.Sum.String(),
		"avg":   res.Avg.String(),
		"min":   res.Min.String(),
		"max":   res.Max.String(),
	})
}

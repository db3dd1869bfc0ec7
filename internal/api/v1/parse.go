package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ParseRequest 单值解析请求
type ParseRequest struct {
	Value  string `json:"value"`
	Format string `json:"format"` // 可选：指定候选格式，指定后不匹配即失败
}

// ParseAmount 解析单个金额文本
// POST /api/parse/amount
func (h *Handler) ParseAmount(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	res := h.registry.ParseAmount(req.Value, req.Format)
	if !res.Parsed() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"parsed": false,
			"reason": string(res.Reason),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"parsed":   true,
		"format":   res.Candidate,
		"value":    res.Amount.Value.String(),
		"currency": res.Amount.Currency,
		"negative": res.Amount.Negative,
		"grouping": string(res.Amount.Grouping),
		"abbrev":   res.Amount.Abbrev,
	})
}

// ParseDate 解析单个日期文本
// POST /api/parse/date
func (h *Handler) ParseDate(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	res := h.registry.ParseDate(req.Value, req.Format)
	if !res.Parsed() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"parsed": false,
			"reason": string(res.Reason),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"parsed":    true,
		"format":    res.Candidate,
		"date":      res.Date.Time.Format("2006-01-02"),
		"ambiguous": res.Date.Ambiguous,
		"period":    string(res.Date.Period),
	})
}

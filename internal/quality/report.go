package quality

import (
	"strings"

	"finparser/internal/inference"
)

// 每列最多留存的问题值样本数
const maxOffending = 10

// ColumnReport 单列的数据质量统计
type ColumnReport struct {
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Total           int            `json:"total"`
	Nulls           int            `json:"nulls"`
	Failures        int            `json:"failures"`
	Formats         map[string]int `json:"formats,omitempty"`
	FailureReasons  map[string]int `json:"failure_reasons,omitempty"`
	OffendingValues []string       `json:"offending_values,omitempty"`
}

// NullRatio 空值占比
func (c *ColumnReport) NullRatio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Nulls) / float64(c.Total)
}

// Report 整表的数据质量报告
type Report struct {
	Rows          int             `json:"rows"`
	DuplicateRows int             `json:"duplicate_rows"`
	EmptyColumns  []string        `json:"empty_columns,omitempty"`
	Score         float64         `json:"score"`
	Columns       []*ColumnReport `json:"columns"`
}

// Accumulator 质量统计累加器：导入过程中逐单元格喂入结果，
// 结束时汇总为报告。非并发安全，按单个导入任务独占使用。
type Accumulator struct {
	rows       int
	duplicates int
	seen       map[string]struct{}
	cols       []*ColumnReport
}

// NewAccumulator 按列名与检测类型初始化累加器
func NewAccumulator(headers []string, types []inference.ColumnTypeResult) *Accumulator {
	cols := make([]*ColumnReport, len(headers))
	for i, name := range headers {
		typ := string(inference.TypeString)
		if i < len(types) {
			typ = string(types[i].Type)
		}
		cols[i] = &ColumnReport{
			Name:           name,
			Type:           typ,
			Formats:        map[string]int{},
			FailureReasons: map[string]int{},
		}
	}
	return &Accumulator{
		seen: map[string]struct{}{},
		cols: cols,
	}
}

// RecordRow 记一行，按原始值整行去重统计重复行
func (a *Accumulator) RecordRow(raw []string) {
	a.rows++
	key := strings.Join(raw, "\x1f")
	if _, dup := a.seen[key]; dup {
		a.duplicates++
		return
	}
	a.seen[key] = struct{}{}
}

// RecordNull 记一个空单元格
func (a *Accumulator) RecordNull(col int) {
	if col < 0 || col >= len(a.cols) {
		return
	}
	c := a.cols[col]
	c.Total++
	c.Nulls++
}

// RecordOK 记一个成功解析（或无需解析）的单元格。
// format 为命中的候选格式名，留存每列的格式分布，暴露列内格式漂移；
// 无需解析的单元格传空串，不计入分布。
func (a *Accumulator) RecordOK(col int, format string) {
	if col < 0 || col >= len(a.cols) {
		return
	}
	c := a.cols[col]
	c.Total++
	if format != "" {
		c.Formats[format]++
	}
}

// RecordFailure 记一个解析失败的单元格，留存失败原因与问题值样本
func (a *Accumulator) RecordFailure(col int, raw string, reason inference.FailReason) {
	if col < 0 || col >= len(a.cols) {
		return
	}
	c := a.cols[col]
	c.Total++
	c.Failures++
	c.FailureReasons[string(reason)]++
	if len(c.OffendingValues) < maxOffending {
		c.OffendingValues = append(c.OffendingValues, raw)
	}
}

// Finish 汇总报告。
// 得分 = 非空单元格中成功解析的比例；全空表记 1.0。
func (a *Accumulator) Finish() *Report {
	attempted, failed := 0, 0
	empty := []string{}
	for _, c := range a.cols {
		attempted += c.Total - c.Nulls
		failed += c.Failures
		if c.Total > 0 && c.Nulls == c.Total {
			empty = append(empty, c.Name)
		}
	}

	score := 1.0
	if attempted > 0 {
		score = float64(attempted-failed) / float64(attempted)
	}

	return &Report{
		Rows:          a.rows,
		DuplicateRows: a.duplicates,
		EmptyColumns:  empty,
		Score:         score,
		Columns:       a.cols,
	}
}

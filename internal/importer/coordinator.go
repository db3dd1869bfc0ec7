package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finparser/internal/inference"
	"finparser/internal/ingest"
	"finparser/internal/quality"
	"finparser/internal/store"
)

// Coordinator 导入协调器：读工作簿、检测列类型、规范化单元格、落库
type Coordinator struct {
	store    *store.Store
	registry *inference.Registry
	detector *inference.Detector
}

// NewCoordinator 创建导入协调器
func NewCoordinator(st *store.Store, reg *inference.Registry) *Coordinator {
	return &Coordinator{
		store:    st,
		registry: reg,
		detector: inference.NewDetector(reg),
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath string    // 文件路径，与 Reader 二选一
	Reader   io.Reader // 上传流
	Filename string    // 流导入时的展示文件名
	Sheet    string    // 只导入指定工作表；为空则全部导入
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/sheet_start/sheet_done/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// DatasetResult 单个工作表的导入结果
type DatasetResult struct {
	DatasetID    string          `json:"dataset_id"`
	Sheet        string          `json:"sheet"`
	Rows         int             `json:"rows"`
	Columns      int             `json:"columns"`
	QualityScore float64         `json:"quality_score"`
	Quality      *quality.Report `json:"quality"`
}

// ImportReport 导入汇总
type ImportReport struct {
	Filename string          `json:"filename"`
	Datasets []DatasetResult `json:"datasets"`
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(opts, progressChan)
	}()

	return progressChan
}

// doImport 执行导入逻辑
func (c *Coordinator) doImport(opts ImportOptions, progressChan chan ProgressEvent) {
	filename := opts.Filename
	if filename == "" {
		filename = filepath.Base(opts.FilePath)
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "start",
		Message:   "开始导入 Excel 文件",
		Data:      map[string]string{"filename": filename},
		Timestamp: time.Now(),
	})

	reader := ingest.NewReader()
	var err error
	if opts.Reader != nil {
		err = reader.LoadFile(opts.Reader)
	} else {
		err = reader.LoadPath(opts.FilePath)
	}
	if err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("打开文件失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}
	defer reader.Close()

	sheets, err := reader.Sheets()
	if err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("读取工作表列表失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	report := &ImportReport{Filename: filename}

	for _, sheet := range sheets {
		if opts.Sheet != "" && sheet.Name != opts.Sheet {
			continue
		}

		c.sendProgress(progressChan, ProgressEvent{
			Type:      "sheet_start",
			Message:   fmt.Sprintf("开始处理工作表 %s", sheet.Name),
			Data:      map[string]interface{}{"sheet": sheet.Name, "rows": sheet.RowCount},
			Timestamp: time.Now(),
		})

		result, err := c.importSheet(reader, filename, sheet.Name)
		if err != nil {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "error",
				Message:   fmt.Sprintf("工作表 %s 导入失败: %v", sheet.Name, err),
				Timestamp: time.Now(),
			})
			continue
		}

		report.Datasets = append(report.Datasets, *result)
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "sheet_done",
			Message:   fmt.Sprintf("工作表 %s 导入完成", sheet.Name),
			Data:      result,
			Timestamp: time.Now(),
		})
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "done",
		Message:   "导入完成",
		Data:      report,
		Timestamp: time.Now(),
	})
}

// importSheet 导入单张工作表为一个数据集
func (c *Coordinator) importSheet(reader *ingest.Reader, filename, sheetName string) (*DatasetResult, error) {
	table, err := reader.ReadSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	// 先逐列检测类型
	types := make([]inference.ColumnTypeResult, len(table.Columns))
	for i, col := range table.Columns {
		types[i] = c.detector.AnalyzeColumn(col)
	}

	acc := quality.NewAccumulator(table.Headers, types)
	cells := make([]store.CellRecord, 0, table.RowCount()*len(table.Columns))

	rawRow := make([]string, len(table.Columns))
	for row := 0; row < table.RowCount(); row++ {
		for col := range table.Columns {
			rawRow[col] = table.Columns[col][row].String()
		}
		acc.RecordRow(rawRow)
		for col := range table.Columns {
			cells = append(cells, c.materializeCell(acc, types[col], table.Columns[col][row], row, col))
		}
	}

	qreport := acc.Finish()

	datasetID := uuid.New().String()
	ds := &store.Dataset{
		ID:           datasetID,
		Name:         filename,
		Sheet:        sheetName,
		RowCount:     table.RowCount(),
		ColumnCount:  len(table.Columns),
		QualityScore: qreport.Score,
	}
	if err := c.store.InsertDataset(ds); err != nil {
		return nil, err
	}

	cols := make([]store.ColumnMeta, len(table.Headers))
	for i, name := range table.Headers {
		cols[i] = store.ColumnMeta{
			Position:       i,
			Name:           name,
			Type:           string(types[i].Type),
			DetectedFormat: types[i].DetectedFormat,
			Confidence:     types[i].Confidence,
			StringSubtype:  string(types[i].StringSubtype),
			SampleSize:     types[i].SampleSize,
			NullCount:      qreport.Columns[i].Nulls,
			FailureCount:   qreport.Columns[i].Failures,
		}
	}
	if err := c.store.InsertColumns(datasetID, cols); err != nil {
		return nil, err
	}
	if err := c.store.BatchInsertCells(datasetID, cells); err != nil {
		return nil, err
	}

	return &DatasetResult{
		DatasetID:    datasetID,
		Sheet:        sheetName,
		Rows:         table.RowCount(),
		Columns:      len(table.Columns),
		QualityScore: qreport.Score,
		Quality:      qreport,
	}, nil
}

// materializeCell 按列的检测类型规范化单元格。
// 列内允许同族的不同具体格式（混排的 $1,234.56 与 1234.5 都算数值），
// 规范化按族解析而不锁定单一格式；解析失败记入质量统计。
func (c *Coordinator) materializeCell(acc *quality.Accumulator, colType inference.ColumnTypeResult, cell inference.RawCell, row, col int) store.CellRecord {
	rec := store.CellRecord{Row: row, Col: col, Raw: cell.String()}

	if cell.IsNull() {
		rec.IsNull = true
		acc.RecordNull(col)
		return rec
	}

	switch colType.Type {
	case inference.TypeNumber:
		if cell.Kind == inference.KindNumber {
			n := decimal.NewFromFloat(cell.Number)
			rec.Number = &n
			acc.RecordOK(col, inference.FormatGenericNumber)
			return rec
		}
		res := c.registry.ParseAmount(cell.Text, "")
		if !res.Parsed() {
			rec.FailReason = string(res.Reason)
			acc.RecordFailure(col, cell.Text, res.Reason)
			return rec
		}
		n := res.Amount.Value
		rec.Number = &n
		rec.Currency = res.Amount.Currency
		acc.RecordOK(col, res.Candidate)
		return rec

	case inference.TypeDate:
		res := c.parseDateCell(cell)
		if !res.Parsed() {
			rec.FailReason = string(res.Reason)
			acc.RecordFailure(col, cell.String(), res.Reason)
			return rec
		}
		t := res.Date.Time
		rec.Date = &t
		rec.DateAmbiguous = res.Date.Ambiguous
		rec.Period = string(res.Date.Period)
		acc.RecordOK(col, res.Candidate)
		return rec

	default:
		acc.RecordOK(col, "")
		return rec
	}
}

func (c *Coordinator) parseDateCell(cell inference.RawCell) inference.ParseResult {
	switch cell.Kind {
	case inference.KindDate:
		// 原生日期与检测器的计票口径一致，归入 ISO 格式
		dv := inference.DateValue{Time: cell.Date}
		return inference.ParseResult{Candidate: inference.FormatISODate, Date: &dv}
	case inference.KindNumber:
		// 日期列里的原生数值按 Excel 序列日期处理
		return c.registry.ParseDate(cell.String(), inference.FormatExcelSerialDate)
	default:
		return c.registry.ParseDate(cell.Text, "")
	}
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}

package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"finparser/internal/inference"
)

// SheetInfo 工作表信息
type SheetInfo struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`
}

// Table 一张工作表的列式视图：首行作表头，数据按列组织。
// 参差不齐的行用空单元格补齐，保证每列长度一致。
type Table struct {
	Sheet   string
	Headers []string
	Columns [][]inference.RawCell
}

// RowCount 数据行数（不含表头）
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Reader Excel读取器：保留单元格的原生类型信息（文本/数值/日期），
// 供下游类型检测区分原生数值与格式化文本。
type Reader struct {
	file   *excelize.File
	fileID string
}

// NewReader 创建读取器
func NewReader() *Reader {
	return &Reader{
		fileID: uuid.New().String(),
	}
}

// LoadFile 从流加载Excel文件
func (r *Reader) LoadFile(reader io.Reader) error {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return fmt.Errorf("failed to open excel: %w", err)
	}
	r.file = file
	return nil
}

// LoadPath 从路径加载Excel文件
func (r *Reader) LoadPath(path string) error {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open excel: %w", err)
	}
	r.file = file
	return nil
}

// FileID 获取文件ID
func (r *Reader) FileID() string {
	return r.fileID
}

// Close 关闭底层工作簿
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Sheets 获取工作表列表
func (r *Reader) Sheets() ([]SheetInfo, error) {
	if r.file == nil {
		return nil, errors.New("no file loaded")
	}

	sheets := r.file.GetSheetList()
	result := make([]SheetInfo, 0, len(sheets))

	for _, name := range sheets {
		rows, err := r.file.GetRows(name)
		if err != nil {
			continue
		}
		result = append(result, SheetInfo{
			Name:     name,
			RowCount: len(rows),
		})
	}

	return result, nil
}

// PreviewRows 获取表头后的前 limit 行原始文本，供交互确认用
func (r *Reader) PreviewRows(sheet string, limit int) ([][]string, error) {
	if r.file == nil {
		return nil, errors.New("no file loaded")
	}

	rows, err := r.file.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	if len(rows) <= 1 {
		return [][]string{}, nil
	}

	end := limit + 1
	if end > len(rows) {
		end = len(rows)
	}

	return rows[1:end], nil
}

// ReadSheet 读取一张工作表为列式表格。
// 首行作为表头，空白表头按位置补名；数据行比表头宽时表头同样补齐。
func (r *Reader) ReadSheet(sheet string) (*Table, error) {
	if r.file == nil {
		return nil, errors.New("no file loaded")
	}

	rows, err := r.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty sheet")
	}

	width := len(rows[0])
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, errors.New("empty sheet")
	}

	headers := make([]string, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(rows[0]) {
			name = strings.TrimSpace(rows[0][i])
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = name
	}

	columns := make([][]inference.RawCell, width)
	for i := range columns {
		columns[i] = make([]inference.RawCell, 0, len(rows)-1)
	}

	for rowIdx, row := range rows[1:] {
		for col := 0; col < width; col++ {
			raw := ""
			if col < len(row) {
				raw = row[col]
			}
			// 表头在第 1 行，数据从第 2 行起
			columns[col] = append(columns[col], r.readCell(sheet, col+1, rowIdx+2, raw))
		}
	}

	return &Table{
		Sheet:   sheet,
		Headers: headers,
		Columns: columns,
	}, nil
}

// readCell 将单元格转为带类型的原始值。
// 无 t 属性的单元格按数值处理；数值单元格若带日期数字格式则还原为日历日期。
func (r *Reader) readCell(sheet string, col, row int, raw string) inference.RawCell {
	if strings.TrimSpace(raw) == "" {
		return inference.EmptyCell()
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return inference.TextCell(raw)
	}

	cellType, err := r.file.GetCellType(sheet, axis)
	if err != nil {
		return inference.TextCell(raw)
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeBool, excelize.CellTypeError, excelize.CellTypeFormula:
		return inference.TextCell(raw)
	case excelize.CellTypeDate:
		if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
			return inference.DateCell(t.UTC())
		}
		return inference.TextCell(raw)
	default:
		f, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return inference.TextCell(raw)
		}
		if r.isDateStyled(sheet, axis) {
			if t, ok := inference.SerialToTime(f); ok {
				return inference.DateCell(t)
			}
		}
		return inference.NumberCell(f)
	}
}

// Excel 内置的日期类数字格式 ID
var builtinDateFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
}

func (r *Reader) isDateStyled(sheet, axis string) bool {
	styleID, err := r.file.GetCellStyle(sheet, axis)
	if err != nil {
		return false
	}
	style, err := r.file.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if builtinDateFmts[style.NumFmt] {
		return true
	}
	if style.CustomNumFmt != nil {
		return looksLikeDateFmt(*style.CustomNumFmt)
	}
	return false
}

// looksLikeDateFmt 粗判自定义数字格式是否为日期格式：
// 跳过方括号段与引号字面量后出现 y 或 d 即认为是日期
func looksLikeDateFmt(fmtStr string) bool {
	inBracket, inQuote := false, false
	for _, ch := range fmtStr {
		switch {
		case inQuote:
			if ch == '"' {
				inQuote = false
			}
		case inBracket:
			if ch == ']' {
				inBracket = false
			}
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == 'y' || ch == 'Y' || ch == 'd' || ch == 'D':
			return true
		}
	}
	return false
}

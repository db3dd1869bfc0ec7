package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// 日期列在库内统一用此格式存储
const dateLayout = "2006-01-02"

// CellRecord 单元格数据：原始值加规范化结果。
// Number 与 Date 至多一个非空；解析失败时 FailReason 非空。
type CellRecord struct {
	Row           int              `json:"row"`
	Col           int              `json:"col"`
	Raw           string           `json:"raw"`
	IsNull        bool             `json:"is_null,omitempty"`
	Number        *decimal.Decimal `json:"number,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Date          *time.Time       `json:"date,omitempty"`
	DateAmbiguous bool             `json:"date_ambiguous,omitempty"`
	Period        string           `json:"period,omitempty"`
	FailReason    string           `json:"fail_reason,omitempty"`
}

// BatchInsertCells 批量插入单元格数据
func (s *Store) BatchInsertCells(datasetID string, cells []CellRecord) error {
	if len(cells) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO cells (
			dataset_id, row_no, col_no, raw_value, is_null,
			number_value, currency, date_value, date_ambiguous, period, fail_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range cells {
		var numberVal, dateVal interface{}
		if c.Number != nil {
			numberVal = c.Number.String()
		}
		if c.Date != nil {
			dateVal = c.Date.Format(dateLayout)
		}
		_, err := stmt.Exec(
			datasetID, c.Row, c.Col, c.Raw, boolToInt(c.IsNull),
			numberVal, c.Currency, dateVal, boolToInt(c.DateAmbiguous), c.Period, c.FailReason,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cell: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CellQueryOptions 单元格查询选项
type CellQueryOptions struct {
	Column    *int             // 列位置
	RawEquals *string          // 原始值精确匹配
	MinNumber *decimal.Decimal // 数值下界（含）
	MaxNumber *decimal.Decimal // 数值上界（含）
	MinDate   *time.Time       // 日期下界（含）
	MaxDate   *time.Time       // 日期上界（含）
	FailedOnly bool            // 只取解析失败的单元格
	Limit     int
	Offset    int
}

// QueryCells 按条件查询单元格。
// 数值比较在 Go 侧用 decimal 完成，库内只做列与日期的粗过滤。
func (s *Store) QueryCells(datasetID string, opts CellQueryOptions) ([]CellRecord, error) {
	query := `
		SELECT row_no, col_no, raw_value, is_null,
		       number_value, currency, date_value, date_ambiguous, period, fail_reason
		FROM cells WHERE dataset_id = ?`
	args := []interface{}{datasetID}

	if opts.Column != nil {
		query += " AND col_no = ?"
		args = append(args, *opts.Column)
	}
	if opts.RawEquals != nil {
		query += " AND raw_value = ?"
		args = append(args, *opts.RawEquals)
	}
	if opts.MinDate != nil {
		query += " AND date_value >= ?"
		args = append(args, opts.MinDate.Format(dateLayout))
	}
	if opts.MaxDate != nil {
		query += " AND date_value <= ?"
		args = append(args, opts.MaxDate.Format(dateLayout))
	}
	if opts.FailedOnly {
		query += " AND fail_reason != ''"
	}
	query += " ORDER BY row_no, col_no"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer rows.Close()

	result := []CellRecord{}
	skipped := 0
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, err
		}

		if opts.MinNumber != nil && (c.Number == nil || c.Number.LessThan(*opts.MinNumber)) {
			continue
		}
		if opts.MaxNumber != nil && (c.Number == nil || c.Number.GreaterThan(*opts.MaxNumber)) {
			continue
		}

		if skipped < opts.Offset {
			skipped++
			continue
		}
		result = append(result, c)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, rows.Err()
}

func scanCell(rows *sql.Rows) (CellRecord, error) {
	var c CellRecord
	var isNull, ambiguous int
	var numberVal, dateVal sql.NullString
	if err := rows.Scan(
		&c.Row, &c.Col, &c.Raw, &isNull,
		&numberVal, &c.Currency, &dateVal, &ambiguous, &c.Period, &c.FailReason,
	); err != nil {
		return c, fmt.Errorf("failed to scan cell: %w", err)
	}
	c.IsNull = isNull != 0
	c.DateAmbiguous = ambiguous != 0
	if numberVal.Valid {
		n, err := decimal.NewFromString(numberVal.String)
		if err != nil {
			return c, fmt.Errorf("corrupt number value %q: %w", numberVal.String, err)
		}
		c.Number = &n
	}
	if dateVal.Valid {
		t, err := time.ParseInLocation(dateLayout, dateVal.String, time.UTC)
		if err != nil {
			return c, fmt.Errorf("corrupt date value %q: %w", dateVal.String, err)
		}
		c.Date = &t
	}
	return c, nil
}

// AggregateResult 聚合结果
type AggregateResult struct {
	Count int             `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
	Avg   decimal.Decimal `json:"avg"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
}

// GroupedAggregate 某个分组键下的聚合结果
type GroupedAggregate struct {
	Key string `json:"key"`
	AggregateResult
}

// AggregateColumn 对数值列整列聚合。
// 只统计成功解析出数值的单元格；列中无数值时 Count 为 0，其余字段为零值。
func (s *Store) AggregateColumn(datasetID string, col int) (*AggregateResult, error) {
	groups, err := s.AggregateColumnBy(datasetID, col, nil)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return &AggregateResult{}, nil
	}
	return &groups[0].AggregateResult, nil
}

// AggregateColumnBy 按分组列对数值列做分组聚合。
// 分组键取分组列的原始文本，同一行的数值计入该键；groupBy 为 nil 时全列归入单组。
// 金额以十进制精确存储，累加同样在 decimal 上完成，避免浮点误差。
// 分组按首次出现的行序返回。
func (s *Store) AggregateColumnBy(datasetID string, col int, groupBy *int) ([]GroupedAggregate, error) {
	query := `
		SELECT '', number_value FROM cells
		WHERE dataset_id = ? AND col_no = ? AND number_value IS NOT NULL
		ORDER BY row_no`
	args := []interface{}{datasetID, col}
	if groupBy != nil {
		query = `
		SELECT g.raw_value, m.number_value
		FROM cells m
		JOIN cells g ON g.dataset_id = m.dataset_id AND g.row_no = m.row_no AND g.col_no = ?
		WHERE m.dataset_id = ? AND m.col_no = ? AND m.number_value IS NOT NULL
		ORDER BY m.row_no`
		args = []interface{}{*groupBy, datasetID, col}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate column: %w", err)
	}
	defer rows.Close()

	index := map[string]int{}
	groups := []GroupedAggregate{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		n, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt number value %q: %w", raw, err)
		}

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, GroupedAggregate{Key: key})
		}
		g := &groups[i]
		if g.Count == 0 {
			g.Min, g.Max = n, n
		} else {
			if n.LessThan(g.Min) {
				g.Min = n
			}
			if n.GreaterThan(g.Max) {
				g.Max = n
			}
		}
		g.Sum = g.Sum.Add(n)
		g.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		g := &groups[i]
		if g.Count > 0 {
			g.Avg = g.Sum.Div(decimal.NewFromInt(int64(g.Count)))
		}
	}
	return groups, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

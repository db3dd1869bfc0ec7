package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Dataset 数据集元信息
type Dataset struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Sheet        string    `json:"sheet"`
	RowCount     int       `json:"row_count"`
	ColumnCount  int       `json:"column_count"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// ColumnMeta 数据集的列元信息
type ColumnMeta struct {
	Position       int     `json:"position"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	DetectedFormat string  `json:"detected_format,omitempty"`
	Confidence     float64 `json:"confidence"`
	StringSubtype  string  `json:"string_subtype,omitempty"`
	SampleSize     int     `json:"sample_size"`
	NullCount      int     `json:"null_count"`
	FailureCount   int     `json:"failure_count"`
}

// InsertDataset 写入数据集元信息
func (s *Store) InsertDataset(d *Dataset) error {
	_, err := s.db.Exec(`
		INSERT INTO datasets (id, name, sheet, row_count, column_count, quality_score)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.Name, d.Sheet, d.RowCount, d.ColumnCount, d.QualityScore)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}
	return nil
}

// InsertColumns 批量写入列元信息
func (s *Store) InsertColumns(datasetID string, cols []ColumnMeta) error {
	if len(cols) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO dataset_columns (
			dataset_id, position, name, type, detected_format,
			confidence, string_subtype, sample_size, null_count, failure_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range cols {
		_, err := stmt.Exec(
			datasetID, c.Position, c.Name, c.Type, c.DetectedFormat,
			c.Confidence, c.StringSubtype, c.SampleSize, c.NullCount, c.FailureCount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert column: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListDatasets 列出全部数据集，按创建时间倒序
func (s *Store) ListDatasets() ([]*Dataset, error) {
	rows, err := s.db.Query(`
		SELECT id, name, sheet, row_count, column_count, quality_score, created_at
		FROM datasets
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	result := []*Dataset{}
	for rows.Next() {
		d := &Dataset{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Sheet, &d.RowCount, &d.ColumnCount, &d.QualityScore, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetDataset 按 ID 获取数据集，不存在返回 nil
func (s *Store) GetDataset(id string) (*Dataset, error) {
	d := &Dataset{}
	err := s.db.QueryRow(`
		SELECT id, name, sheet, row_count, column_count, quality_score, created_at
		FROM datasets WHERE id = ?
	`, id).Scan(&d.ID, &d.Name, &d.Sheet, &d.RowCount, &d.ColumnCount, &d.QualityScore, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return d, nil
}

// GetColumns 获取数据集的列元信息，按列位置排序
func (s *Store) GetColumns(datasetID string) ([]ColumnMeta, error) {
	rows, err := s.db.Query(`
		SELECT position, name, type, detected_format, confidence,
		       string_subtype, sample_size, null_count, failure_count
		FROM dataset_columns
		WHERE dataset_id = ?
		ORDER BY position
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	result := []ColumnMeta{}
	for rows.Next() {
		var c ColumnMeta
		if err := rows.Scan(
			&c.Position, &c.Name, &c.Type, &c.DetectedFormat, &c.Confidence,
			&c.StringSubtype, &c.SampleSize, &c.NullCount, &c.FailureCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

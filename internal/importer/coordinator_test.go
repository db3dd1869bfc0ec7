package importer_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"finparser/internal/importer"
	"finparser/internal/inference"
	"finparser/internal/store"
)

func buildLedger(t *testing.T) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := "Sheet1"
	rows := [][]interface{}{
		{"txn_date", "amount", "memo"},
		{"2024-01-05", "$1,234.56", "office supplies"},
		{"2024-01-06", "(500.00)", "refund"},
		{"2024-01-07", "abc", "bad row"},
		{"13/02/2024", "$99.00", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName failed: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf
}

func drain(t *testing.T, ch <-chan importer.ProgressEvent) []importer.ProgressEvent {
	t.Helper()
	events := []importer.ProgressEvent{}
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestImport(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	defer st.Close()

	coord := importer.NewCoordinator(st, inference.NewRegistry(inference.Options{}))
	events := drain(t, coord.Import(importer.ImportOptions{
		Reader:   buildLedger(t),
		Filename: "ledger.xlsx",
	}))

	if len(events) == 0 || events[0].Type != "start" {
		t.Fatalf("events=%+v", events)
	}
	last := events[len(events)-1]
	if last.Type != "done" {
		t.Fatalf("last event=%+v", last)
	}
	report, ok := last.Data.(*importer.ImportReport)
	if !ok {
		t.Fatalf("done data=%T", last.Data)
	}
	if len(report.Datasets) != 1 {
		t.Fatalf("report=%+v", report)
	}

	ds := report.Datasets[0]
	if ds.Rows != 4 || ds.Columns != 3 {
		t.Fatalf("dataset=%+v", ds)
	}
	if ds.QualityScore >= 1 {
		t.Fatalf("score should reflect the bad amount cell, got %v", ds.QualityScore)
	}
	if ds.Quality == nil || len(ds.Quality.Columns) != 3 {
		t.Fatalf("quality=%+v", ds.Quality)
	}

	// 质量报告留存每列命中的格式分布，混排格式可见
	amountFormats := ds.Quality.Columns[1].Formats
	if amountFormats["US-currency"] != 2 || amountFormats["parenthesized-negative"] != 1 {
		t.Fatalf("formats=%v", amountFormats)
	}
	dateFormats := ds.Quality.Columns[0].Formats
	if dateFormats["ISO-date"] != 3 || dateFormats["slash-date-ambiguous"] != 1 {
		t.Fatalf("formats=%v", dateFormats)
	}

	cols, err := st.GetColumns(ds.DatasetID)
	if err != nil {
		t.Fatalf("GetColumns failed: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("columns=%+v", cols)
	}
	if cols[0].Type != "date" {
		t.Fatalf("column 0=%+v", cols[0])
	}
	if cols[1].Type != "number" || cols[1].FailureCount != 1 {
		t.Fatalf("column 1=%+v", cols[1])
	}
	if cols[2].Type != "string" {
		t.Fatalf("column 2=%+v", cols[2])
	}

	// 规范化结果落库
	col := 1
	cells, err := st.QueryCells(ds.DatasetID, store.CellQueryOptions{Column: &col})
	if err != nil {
		t.Fatalf("QueryCells failed: %v", err)
	}
	if len(cells) != 4 {
		t.Fatalf("cells=%d", len(cells))
	}
	if cells[0].Number == nil || cells[0].Number.String() != "1234.56" || cells[0].Currency != "USD" {
		t.Fatalf("cell=%+v", cells[0])
	}
	if cells[1].Number == nil || cells[1].Number.String() != "-500" {
		t.Fatalf("cell=%+v", cells[1])
	}
	if cells[2].FailReason != "NO_DIGITS" {
		t.Fatalf("cell=%+v", cells[2])
	}

	col = 0
	cells, err = st.QueryCells(ds.DatasetID, store.CellQueryOptions{Column: &col})
	if err != nil {
		t.Fatalf("QueryCells failed: %v", err)
	}
	if cells[0].Date == nil || cells[0].Date.Format("2006-01-02") != "2024-01-05" {
		t.Fatalf("cell=%+v", cells[0])
	}
	// 13/02/2024 首分量大于 12，无歧义
	if cells[3].Date == nil || cells[3].Date.Format("2006-01-02") != "2024-02-13" || cells[3].DateAmbiguous {
		t.Fatalf("cell=%+v", cells[3])
	}

	// memo 列第 4 行为空
	col = 2
	cells, err = st.QueryCells(ds.DatasetID, store.CellQueryOptions{Column: &col})
	if err != nil {
		t.Fatalf("QueryCells failed: %v", err)
	}
	if !cells[3].IsNull {
		t.Fatalf("cell=%+v", cells[3])
	}
}

func TestImportBadFile(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	defer st.Close()

	coord := importer.NewCoordinator(st, inference.NewRegistry(inference.Options{}))
	events := drain(t, coord.Import(importer.ImportOptions{
		Reader:   bytes.NewBufferString("not an excel file"),
		Filename: "bad.bin",
	}))

	foundError := false
	for _, ev := range events {
		if ev.Type == "error" {
			foundError = true
		}
	}
	if !foundError {
		t.Fatalf("expected error event, events=%+v", events)
	}
}

package inference

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, res ParseResult) *DateValue {
	t.Helper()
	if !res.Parsed() {
		t.Fatalf("expected parsed date, got failure: %s", res.Reason)
	}
	if res.Date == nil {
		t.Fatalf("parsed result has no date")
	}
	return res.Date
}

func ymd(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate_ISO(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	res := reg.ParseDate("2024-03-15", "")
	dv := mustDate(t, res)

	if !dv.Time.Equal(ymd(2024, time.March, 15)) {
		t.Fatalf("time mismatch: got=%v", dv.Time)
	}
	if dv.Ambiguous || dv.Period != PeriodNone {
		t.Fatalf("unexpected flags: ambiguous=%v period=%s", dv.Ambiguous, dv.Period)
	}
	if res.Candidate != FormatISODate {
		t.Fatalf("candidate mismatch: got=%s", res.Candidate)
	}

	// 形状符合 ISO 但分量越界：提交给 ISO 候选后报 OUT_OF_RANGE
	res = reg.ParseDate("2024-13-05", "")
	if res.Parsed() || res.Reason != FailOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE, got=%v reason=%s", res.Parsed(), res.Reason)
	}
}

func TestParseDate_SlashAmbiguity(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	// 两个分量都 ≤12：不猜，按 MM/DD 默认并打 ambiguous 标记
	res := reg.ParseDate("03/04/2024", "")
	dv := mustDate(t, res)
	if !dv.Ambiguous {
		t.Fatalf("expected ambiguous")
	}
	if !dv.Time.Equal(ymd(2024, time.March, 4)) {
		t.Fatalf("time mismatch: got=%v", dv.Time)
	}

	// 首分量 >12：必为日，DD/MM 且不含糊
	res = reg.ParseDate("13/04/2024", "")
	dv = mustDate(t, res)
	if dv.Ambiguous {
		t.Fatalf("unexpected ambiguous")
	}
	if !dv.Time.Equal(ymd(2024, time.April, 13)) {
		t.Fatalf("time mismatch: got=%v", dv.Time)
	}

	// 次分量 >12：MM/DD 且不含糊
	res = reg.ParseDate("04/13/2024", "")
	dv = mustDate(t, res)
	if dv.Ambiguous || !dv.Time.Equal(ymd(2024, time.April, 13)) {
		t.Fatalf("unexpected: ambiguous=%v time=%v", dv.Ambiguous, dv.Time)
	}

	// 两个分量都 >12：任何解释都越界
	res = reg.ParseDate("13/13/2024", "")
	if res.Parsed() || res.Reason != FailOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE, reason=%s", res.Reason)
	}

	res = reg.ParseDate("02/30/2024", "")
	if res.Parsed() || res.Reason != FailOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE, reason=%s", res.Reason)
	}
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	dv := mustDate(t, reg.ParseDate("01/02/49", ""))
	if dv.Time.Year() != 2049 {
		t.Fatalf("pivot mismatch: got=%d want=2049", dv.Time.Year())
	}
	dv = mustDate(t, reg.ParseDate("01/02/50", ""))
	if dv.Time.Year() != 1950 {
		t.Fatalf("pivot mismatch: got=%d want=1950", dv.Time.Year())
	}
}

func TestParseDate_MonthName(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	dv := mustDate(t, reg.ParseDate("15-Mar-2024", ""))
	if !dv.Time.Equal(ymd(2024, time.March, 15)) || dv.Period != PeriodNone {
		t.Fatalf("unexpected: time=%v period=%s", dv.Time, dv.Period)
	}

	dv = mustDate(t, reg.ParseDate("Mar 2024", ""))
	if !dv.Time.Equal(ymd(2024, time.March, 1)) || dv.Period != PeriodMonth {
		t.Fatalf("unexpected: time=%v period=%s", dv.Time, dv.Period)
	}

	dv = mustDate(t, reg.ParseDate("March 2024", ""))
	if !dv.Time.Equal(ymd(2024, time.March, 1)) {
		t.Fatalf("time mismatch: got=%v", dv.Time)
	}

	// 两位年份的月份简写（Dec-23 → 2023-12）
	dv = mustDate(t, reg.ParseDate("Dec-23", ""))
	if !dv.Time.Equal(ymd(2023, time.December, 1)) {
		t.Fatalf("time mismatch: got=%v", dv.Time)
	}

	res := reg.ParseDate("15-Foo-2024", "")
	if res.Parsed() || res.Reason != FailNoMatchingFormat {
		t.Fatalf("expected NO_MATCHING_FORMAT, reason=%s", res.Reason)
	}
}

func TestParseDate_Quarter(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	cases := map[string]time.Time{
		"Q1 2024":        ymd(2024, time.January, 1),
		"Q3-24":          ymd(2024, time.July, 1),
		"Quarter 2 2024": ymd(2024, time.April, 1),
		"q4 2023":        ymd(2023, time.October, 1),
	}
	for in, want := range cases {
		dv := mustDate(t, reg.ParseDate(in, ""))
		if !dv.Time.Equal(want) {
			t.Fatalf("%s: time mismatch got=%v want=%v", in, dv.Time, want)
		}
		if dv.Period != PeriodQuarter {
			t.Fatalf("%s: period mismatch got=%s", in, dv.Period)
		}
	}
}

func TestParseDate_ExcelSerial(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	// 序列日期只在显式 hint 下解析文本
	dv := mustDate(t, reg.ParseDate("44927", FormatExcelSerialDate))
	if !dv.Time.Equal(ymd(2023, time.January, 1)) {
		t.Fatalf("time mismatch: got=%v", dv.Time)
	}

	dv = mustDate(t, reg.ParseDate("1", FormatExcelSerialDate))
	if !dv.Time.Equal(ymd(1900, time.January, 1)) {
		t.Fatalf("serial 1 mismatch: got=%v", dv.Time)
	}

	// 1900 闰年 bug：序列 60 是不存在的 1900-02-29，按 02-28 处理
	dv = mustDate(t, reg.ParseDate("60", FormatExcelSerialDate))
	if !dv.Time.Equal(ymd(1900, time.February, 28)) {
		t.Fatalf("serial 60 mismatch: got=%v", dv.Time)
	}
	dv = mustDate(t, reg.ParseDate("61", FormatExcelSerialDate))
	if !dv.Time.Equal(ymd(1900, time.March, 1)) {
		t.Fatalf("serial 61 mismatch: got=%v", dv.Time)
	}

	res := reg.ParseDate("70000", FormatExcelSerialDate)
	if res.Parsed() || res.Reason != FailOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE, reason=%s", res.Reason)
	}

	// 无 hint 的自由文本永不按序列日期解释
	res = reg.ParseDate("44927", "")
	if res.Parsed() || res.Reason != FailNoMatchingFormat {
		t.Fatalf("expected NO_MATCHING_FORMAT, reason=%s", res.Reason)
	}
}

func TestParseDate_HintIsCommitment(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	res := reg.ParseDate("Q1 2024", FormatISODate)
	if res.Parsed() || res.Reason != FailFormatMismatch {
		t.Fatalf("expected FORMAT_MISMATCH, reason=%s", res.Reason)
	}
}

func TestParseDate_Empty(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	res := reg.ParseDate("  ", "")
	if res.Parsed() || res.Reason != FailEmptyInput {
		t.Fatalf("expected EMPTY_INPUT, reason=%s", res.Reason)
	}
}

package inference

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISODate     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reDayMonYear  = regexp.MustCompile(`^(\d{1,2})[-\s]([A-Za-z]{3,9})[-\s](\d{2,4})$`)
	reMonYear     = regexp.MustCompile(`^([A-Za-z]{3,9})[-\s](\d{2,4})$`)
	reSlashDate   = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	reQuarterDate = regexp.MustCompile(`(?i)^q(?:uarter)?\s*([1-4])[\s-]\s*(\d{2}|\d{4})$`)
)

// Excel 序列日期的合理范围（1900-01-01 起约至 2064 年）
const (
	serialMin = 1
	serialMax = 60000
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// dateFormDef 日期候选格式 = 形状匹配 + 转换。切片顺序即无 hint 时的尝试顺序。
// Excel 序列日期不在此列：它只在列上下文标记为原生数值时参与（见 registry）。
type dateFormDef struct {
	name    string
	match   func(string) bool
	convert func(string) ParseResult
}

var dateForms = []dateFormDef{
	{FormatISODate, matchISODate, convertISODate},
	{FormatMonthNameDate, matchMonthNameDate, convertMonthNameDate},
	{FormatSlashDate, matchSlashDate, convertSlashDate},
	{FormatQuarter, matchQuarter, convertQuarter},
}

// expandYear 两位年份展开：00–49 → 2000–2049，50–99 → 1950–1999。
// 财务台账可能跨过库默认的轴心年，此处固定成文档化的策略。
func expandYear(y int, digits int) int {
	if digits != 2 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

// makeDate 构造 UTC 零点日历日期，并校验各分量未被规范化吞掉（month 13、day 32 等）
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func dateResult(name string, dv DateValue) ParseResult {
	return ParseResult{Candidate: name, Date: &dv}
}

func serialInRange(f float64) bool {
	return f >= serialMin && f <= serialMax
}

// SerialToTime 将 Excel 序列值转为日历日期。
// 纪元取 1899-12-31，并保留历史遗留的 1900 闰年 bug：
// 序列 60 对应不存在的 1900-02-29，与原始实现一致按 1900-02-28 处理。
// 超出合理范围（1 至 60000）返回 false。
func SerialToTime(serial float64) (time.Time, bool) {
	if !serialInRange(serial) {
		return time.Time{}, false
	}
	days := int(math.Floor(serial))
	if days >= 60 {
		days--
	}
	epoch := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	return epoch.AddDate(0, 0, days), true
}

func convertSerialDate(text string) ParseResult {
	f, err := strconv.ParseFloat(trimmed(text), 64)
	if err != nil {
		return failed(FailNoMatchingFormat)
	}
	t, ok := SerialToTime(f)
	if !ok {
		return failed(FailOutOfRange)
	}
	return dateResult(FormatExcelSerialDate, DateValue{Time: t})
}

func matchISODate(text string) bool {
	return reISODate.MatchString(text)
}

func convertISODate(text string) ParseResult {
	m := reISODate.FindStringSubmatch(text)
	if m == nil {
		return failed(FailNoMatchingFormat)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	t, ok := makeDate(year, time.Month(month), day)
	if !ok {
		return failed(FailOutOfRange)
	}
	return dateResult(FormatISODate, DateValue{Time: t})
}

func matchMonthNameDate(text string) bool {
	if m := reDayMonYear.FindStringSubmatch(text); m != nil {
		_, ok := monthNames[strings.ToLower(m[2])]
		return ok
	}
	if m := reMonYear.FindStringSubmatch(text); m != nil {
		_, ok := monthNames[strings.ToLower(m[1])]
		return ok
	}
	return false
}

// convertMonthNameDate 处理 15-Mar-2024 / Mar 2024 / March 2024 / Dec-23。
// 缺少日的月份形式取当月首日，并打上 month 期间标记。
func convertMonthNameDate(text string) ParseResult {
	if m := reDayMonYear.FindStringSubmatch(text); m != nil {
		month, ok := monthNames[strings.ToLower(m[2])]
		if !ok {
			return failed(FailNoMatchingFormat)
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		year = expandYear(year, len(m[3]))
		t, valid := makeDate(year, month, day)
		if !valid {
			return failed(FailOutOfRange)
		}
		return dateResult(FormatMonthNameDate, DateValue{Time: t})
	}

	m := reMonYear.FindStringSubmatch(text)
	if m == nil {
		return failed(FailNoMatchingFormat)
	}
	month, ok := monthNames[strings.ToLower(m[1])]
	if !ok {
		return failed(FailNoMatchingFormat)
	}
	year, _ := strconv.Atoi(m[2])
	year = expandYear(year, len(m[2]))
	t, valid := makeDate(year, month, 1)
	if !valid {
		return failed(FailOutOfRange)
	}
	return dateResult(FormatMonthNameDate, DateValue{Time: t, Period: PeriodMonth})
}

func matchSlashDate(text string) bool {
	return reSlashDate.MatchString(text)
}

// convertSlashDate 处理 NN/NN/YYYY 与 NN-NN-YY(YY)。
// 消歧策略：任一分量超过 12 则该分量必为日；两者都 ≤12 时不瞎猜，
// 返回按 MM/DD 解释的结果并带 ambiguous 标记，交由下游处置。
func convertSlashDate(text string) ParseResult {
	m := reSlashDate.FindStringSubmatch(text)
	if m == nil {
		return failed(FailNoMatchingFormat)
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	year = expandYear(year, len(m[3]))

	var month, day int
	ambiguous := false
	switch {
	case a > 12 && b > 12:
		return failed(FailOutOfRange)
	case a > 12:
		day, month = a, b // DD/MM
	case b > 12:
		month, day = a, b // MM/DD
	default:
		month, day = a, b // 文档化默认：MM/DD
		ambiguous = true
	}

	t, valid := makeDate(year, time.Month(month), day)
	if !valid {
		return failed(FailOutOfRange)
	}
	return dateResult(FormatSlashDate, DateValue{Time: t, Ambiguous: ambiguous})
}

func matchQuarter(text string) bool {
	return reQuarterDate.MatchString(text)
}

// convertQuarter 处理 Q1 2024 / Q1-24 / Quarter 1 2024，映射到季度首月首日
func convertQuarter(text string) ParseResult {
	m := reQuarterDate.FindStringSubmatch(text)
	if m == nil {
		return failed(FailNoMatchingFormat)
	}
	quarter, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	year = expandYear(year, len(m[2]))

	month := time.Month((quarter-1)*3 + 1)
	t, valid := makeDate(year, month, 1)
	if !valid {
		return failed(FailOutOfRange)
	}
	return dateResult(FormatQuarter, DateValue{Time: t, Period: PeriodQuarter})
}

// ParseDate 解析单个日期文本。
// hint 非空时只尝试被指定的候选格式，不匹配直接返回失败；
// 无 hint 时按固定优先序尝试，Excel 序列日期永不参与自由文本解析。
func (r *Registry) ParseDate(text, hint string) ParseResult {
	t := trimmed(text)
	if t == "" {
		return failed(FailEmptyInput)
	}

	if hint != "" {
		cand, ok := r.Lookup(hint)
		if !ok || cand.Family != FamilyDate {
			return failed(FailFormatMismatch)
		}
		if hint == FormatExcelSerialDate {
			res := convertSerialDate(t)
			if res.Reason == FailNoMatchingFormat {
				return failed(FailFormatMismatch)
			}
			return res
		}
		for _, f := range dateForms {
			if f.name != hint {
				continue
			}
			if !f.match(t) {
				return failed(FailFormatMismatch)
			}
			return f.convert(t)
		}
		return failed(FailFormatMismatch)
	}

	for _, f := range dateForms {
		if f.match(t) {
			return f.convert(t)
		}
	}
	return failed(FailNoMatchingFormat)
}

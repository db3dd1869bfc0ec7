package inference

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CellKind 原始单元格取值类别
type CellKind int

const (
	KindEmpty  CellKind = iota // 空单元格
	KindText                   // 文本
	KindNumber                 // 电子表格原生数值
	KindDate                   // 电子表格原生日期
)

// RawCell 一个按出现原样保留的输入值，由调用方（摄取层）持有，推断过程不修改
type RawCell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
}

// TextCell 构造文本单元格
func TextCell(s string) RawCell {
	return RawCell{Kind: KindText, Text: s}
}

// NumberCell 构造原生数值单元格
func NumberCell(f float64) RawCell {
	return RawCell{Kind: KindNumber, Number: f}
}

// DateCell 构造原生日期单元格
func DateCell(t time.Time) RawCell {
	return RawCell{Kind: KindDate, Date: t}
}

// EmptyCell 构造空单元格
func EmptyCell() RawCell {
	return RawCell{Kind: KindEmpty}
}

// IsNull 空单元格或纯空白文本视为 null，不参与采样
func (c RawCell) IsNull() bool {
	switch c.Kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String 返回参与格式匹配的文本形式
func (c RawCell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case KindDate:
		return c.Date.Format("2006-01-02")
	default:
		return ""
	}
}

// FailReason 单值解析失败原因码
type FailReason string

const (
	FailEmptyInput          FailReason = "EMPTY_INPUT"
	FailNoDigits            FailReason = "NO_DIGITS"
	FailMultipleSigns       FailReason = "MULTIPLE_SIGNS"
	FailAmbiguousSeparators FailReason = "AMBIGUOUS_SEPARATORS"
	FailUnrecognizedSuffix  FailReason = "UNRECOGNIZED_SUFFIX"
	FailNoMatchingFormat    FailReason = "NO_MATCHING_FORMAT"
	FailOutOfRange          FailReason = "OUT_OF_RANGE"
	// FailFormatMismatch 提供了 format hint 但该值不符合被指定的格式。
	// hint 是承诺而不是建议：不回退去尝试其他候选格式。
	FailFormatMismatch FailReason = "FORMAT_MISMATCH"
)

// GroupingStyle 数字分组/小数分隔符惯例
type GroupingStyle string

const (
	GroupingUS     GroupingStyle = "US"     // 1,234.56
	GroupingEU     GroupingStyle = "EU"     // 1.234,56
	GroupingIndian GroupingStyle = "IN"     // 1,23,456.78
	GroupingNone   GroupingStyle = ""       // 无分组分隔符
)

// Amount 金额解析结果：带符号的任意精度数值，币种与数值彼此独立
type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency,omitempty"` // ISO 代码，无币种标记时为空
	Negative bool            `json:"negative"`
	Grouping GroupingStyle   `json:"grouping,omitempty"`
	Abbrev   string          `json:"abbrev,omitempty"` // K/M/B 缩写后缀（已折算进 Value）
}

// PeriodKind 日期的期间类别
type PeriodKind string

const (
	PeriodNone    PeriodKind = ""        // 精确日历日期
	PeriodQuarter PeriodKind = "quarter" // 季度（取季度首月首日）
	PeriodMonth   PeriodKind = "month"   // 月份（取当月首日）
)

// DateValue 日期解析结果
type DateValue struct {
	Time time.Time `json:"time"`
	// Ambiguous 日/月两个分量都 ≤12 且没有列级证据时为 true，
	// 此时 Time 按 MM/DD 解释（文档化的默认），由下游自行决策
	Ambiguous bool       `json:"ambiguous"`
	Period    PeriodKind `json:"period,omitempty"`
}

// ParseResult 单值在单个候选格式下的判别结果。
// 恰好处于一种形态：Amount / Date 二者其一非 nil，或 Reason 非空。
type ParseResult struct {
	Candidate string     `json:"candidate,omitempty"` // 命中的候选格式名
	Amount    *Amount    `json:"amount,omitempty"`
	Date      *DateValue `json:"date,omitempty"`
	Reason    FailReason `json:"reason,omitempty"`
}

// Parsed 是否成功解析
func (r ParseResult) Parsed() bool {
	return r.Reason == ""
}

func failed(reason FailReason) ParseResult {
	return ParseResult{Reason: reason}
}

// ColumnType 列语义类型
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
)

// StringSubtype 字符串列的次级分类（仅作参考元数据，不影响类型判定）
type StringSubtype string

const (
	SubtypeIdentifier StringSubtype = "identifier"
	SubtypeCategory   StringSubtype = "category"
	SubtypeFreeText   StringSubtype = "free_text"
)

// ColumnTypeResult 一列的类型推断结果，每次调用新建，返回后不再修改
type ColumnTypeResult struct {
	Type           ColumnType     `json:"type"`
	Confidence     float64        `json:"confidence"` // 获胜格式命中样本占比，[0,1]
	DetectedFormat string         `json:"detectedFormat,omitempty"`
	SampleSize     int            `json:"sampleSize"` // 实际参与判定的非空值个数
	Evidence       map[string]int `json:"evidence"`   // 候选格式名 -> 命中次数
	StringSubtype  StringSubtype  `json:"stringSubtype,omitempty"`
}

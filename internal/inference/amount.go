package inference

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// 币种符号（前缀或后缀）到 ISO 代码的映射
var currencySymbols = []struct{ sym, code string }{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₹", "INR"},
	{"¥", "JPY"},
}

// ISO 币种代码，同样接受前缀或后缀写法（"USD 1,234" / "1,234 USD"）
var currencyCodes = []string{"USD", "EUR", "GBP", "INR", "JPY"}

// K/M/B 缩写对应的十进制位移（×1e3 / ×1e6 / ×1e9）
var abbrevShift = map[string]int32{"K": 3, "M": 6, "B": 9}

// 分组结构校验。分组模式必须结构化检查，不能靠 locale 元数据推断：
// 句点/逗号相对 3 位与“2 后接 3”位数字段的位置本身就是判别依据。
var (
	reUSGroupedInt     = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	reIndianGroupedInt = regexp.MustCompile(`^\d{1,2}(,\d{2})+,\d{3}$`)
	reEUGroupedInt     = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	rePlainNumber      = regexp.MustCompile(`^(\d+(\.\d+)?|\.\d+)$`)
)

// amountScan 共享扫描器的输出：§金额管线各步骤的识别要素
type amountScan struct {
	value    decimal.Decimal // 已规范化的带符号数值
	currency string          // ISO 代码，无币种时为空
	grouping GroupingStyle
	abbrev   string // "K"/"M"/"B"，无缩写时为空
	paren    bool   // (…) 负数
	leading  bool   // 前置负号
	trailing bool   // 后置负号
}

func (s amountScan) negative() bool {
	return s.paren || s.leading || s.trailing
}

// amountProfileDef 金额候选格式 = 对扫描结果的一个断言。
// 切片顺序即“最具体优先”的裁决顺序。
type amountProfileDef struct {
	name string
	pred func(amountScan) bool
}

var amountProfiles = []amountProfileDef{
	{FormatIndianGrouping, func(s amountScan) bool { return s.grouping == GroupingIndian }},
	{FormatEUCurrency, func(s amountScan) bool { return s.grouping == GroupingEU }},
	{FormatUSCurrency, func(s amountScan) bool {
		return s.currency != "" && (s.grouping == GroupingUS || s.grouping == GroupingNone)
	}},
	{FormatParenNegative, func(s amountScan) bool { return s.paren }},
	{FormatTrailingNeg, func(s amountScan) bool { return s.trailing }},
	{FormatAbbrevSuffix, func(s amountScan) bool { return s.abbrev != "" }},
	{FormatGenericNumber, func(s amountScan) bool { return true }},
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// scanAmount 执行金额识别管线：去空白 → 币种 → 符号惯例 → 缩写后缀 →
// 分组/小数分隔符结构判定 → 规范化为任意精度十进制数。
func scanAmount(text string) (amountScan, FailReason) {
	var scan amountScan

	t := trimmed(text)
	if t == "" {
		return scan, FailEmptyInput
	}

	// (…) 整体括号表示负数
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") && len(t) > 2 {
		scan.paren = true
		t = trimmed(t[1 : len(t)-1])
	}

	// 币种符号/代码，前缀或后缀均可；缺失不算失败，仅 unit 为空
	t = stripCurrency(t, &scan)

	// 符号惯例：前置负号、后置负号、括号，三者只允许出现一种。
	// 括号剥离后再出现符号属于畸形负数，必须报错而不是默默接受。
	if strings.HasPrefix(t, "-") {
		scan.leading = true
		t = trimmed(t[1:])
		if strings.HasPrefix(t, "-") {
			return scan, FailMultipleSigns
		}
	}
	if strings.HasSuffix(t, "-") {
		scan.trailing = true
		t = trimmed(t[:len(t)-1])
		if strings.HasSuffix(t, "-") {
			return scan, FailMultipleSigns
		}
	}
	signs := 0
	for _, b := range []bool{scan.paren, scan.leading, scan.trailing} {
		if b {
			signs++
		}
	}
	if signs > 1 {
		return scan, FailMultipleSigns
	}

	// 缩写后缀：尾部字母段只认 K/M/B（忽略大小写）
	if tail := trailingLetters(t); tail != "" {
		upper := strings.ToUpper(tail)
		if _, ok := abbrevShift[upper]; !ok {
			return scan, FailUnrecognizedSuffix
		}
		scan.abbrev = upper
		t = trimmed(t[:len(t)-len(tail)])
	}

	// 空格作为中性的分组分隔符，结构判定前先剔除
	t = strings.ReplaceAll(t, " ", "")
	if t == "" || !strings.ContainsFunc(t, unicode.IsDigit) {
		return scan, FailNoDigits
	}
	for _, r := range t {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return scan, FailNoDigits
		}
	}

	num, grouping, reason := normalizeSeparators(t)
	if reason != "" {
		return scan, reason
	}
	scan.grouping = grouping

	if !rePlainNumber.MatchString(num) {
		return scan, FailNoDigits
	}
	value, err := decimal.NewFromString(num)
	if err != nil {
		return scan, FailNoDigits
	}
	if scan.abbrev != "" {
		value = value.Shift(abbrevShift[scan.abbrev])
	}
	if scan.negative() {
		value = value.Neg()
	}
	scan.value = value

	return scan, ""
}

// stripCurrency 剥离币种符号/代码并记录 ISO 代码
func stripCurrency(t string, scan *amountScan) string {
	for _, c := range currencySymbols {
		if strings.HasPrefix(t, c.sym) {
			scan.currency = c.code
			return trimmed(t[len(c.sym):])
		}
		if strings.HasSuffix(t, c.sym) {
			scan.currency = c.code
			return trimmed(t[:len(t)-len(c.sym)])
		}
	}
	upper := strings.ToUpper(t)
	for _, code := range currencyCodes {
		if strings.HasPrefix(upper, code+" ") {
			scan.currency = code
			return trimmed(t[len(code):])
		}
		if strings.HasSuffix(upper, " "+code) {
			scan.currency = code
			return trimmed(t[:len(t)-len(code)])
		}
	}
	return t
}

// trailingLetters 返回尾部连续的 ASCII 字母段
func trailingLetters(t string) string {
	i := len(t)
	for i > 0 {
		b := t[i-1]
		if !(b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z') {
			break
		}
		i--
	}
	if i == 0 {
		// 全字母（如 "abc"）交给后面的 NO_DIGITS 判定
		return ""
	}
	return t[i:]
}

// normalizeSeparators 结构化判定分组/小数分隔符惯例，
// 返回以单个句点为小数点的规范数字串。
func normalizeSeparators(t string) (string, GroupingStyle, FailReason) {
	dots := strings.Count(t, ".")
	commas := strings.Count(t, ",")

	switch {
	case dots == 0 && commas == 0:
		return t, GroupingNone, ""

	case commas == 0:
		if dots == 1 {
			// 单个句点按小数点解释
			return t, GroupingNone, ""
		}
		// 多个句点只能是 EU 分组的整数
		if reEUGroupedInt.MatchString(t) {
			return strings.ReplaceAll(t, ".", ""), GroupingEU, ""
		}
		return "", GroupingNone, FailAmbiguousSeparators

	case dots == 0:
		if commas == 1 {
			idx := strings.Index(t, ",")
			tail := t[idx+1:]
			// 逗号后恰好 3 位按千分位分组；1—2 位按小数点
			if len(tail) == 3 && reUSGroupedInt.MatchString(t) {
				return strings.ReplaceAll(t, ",", ""), GroupingUS, ""
			}
			if len(tail) >= 1 && len(tail) <= 2 {
				return strings.Replace(t, ",", ".", 1), GroupingEU, ""
			}
			return "", GroupingNone, FailAmbiguousSeparators
		}
		if reUSGroupedInt.MatchString(t) {
			return strings.ReplaceAll(t, ",", ""), GroupingUS, ""
		}
		if reIndianGroupedInt.MatchString(t) {
			return strings.ReplaceAll(t, ",", ""), GroupingIndian, ""
		}
		return "", GroupingNone, FailAmbiguousSeparators

	default:
		// 句点与逗号并存：靠后的那个是小数点，前面的必须构成合法分组
		lastDot := strings.LastIndex(t, ".")
		lastComma := strings.LastIndex(t, ",")
		if lastDot > lastComma {
			if dots > 1 {
				return "", GroupingNone, FailAmbiguousSeparators
			}
			intPart, frac := t[:lastDot], t[lastDot+1:]
			if frac == "" {
				return "", GroupingNone, FailAmbiguousSeparators
			}
			if reUSGroupedInt.MatchString(intPart) {
				return strings.ReplaceAll(intPart, ",", "") + "." + frac, GroupingUS, ""
			}
			if reIndianGroupedInt.MatchString(intPart) {
				return strings.ReplaceAll(intPart, ",", "") + "." + frac, GroupingIndian, ""
			}
			return "", GroupingNone, FailAmbiguousSeparators
		}
		if commas > 1 {
			return "", GroupingNone, FailAmbiguousSeparators
		}
		intPart, frac := t[:lastComma], t[lastComma+1:]
		if frac == "" || !reEUGroupedInt.MatchString(intPart) {
			return "", GroupingNone, FailAmbiguousSeparators
		}
		return strings.ReplaceAll(intPart, ".", "") + "." + frac, GroupingEU, ""
	}
}

// convertAmountAs 以指定候选格式转换金额文本；不符合该格式时返回失败
func convertAmountAs(text, name string) ParseResult {
	scan, reason := scanAmount(text)
	if reason != "" {
		return failed(reason)
	}
	for _, p := range amountProfiles {
		if p.name == name {
			if !p.pred(scan) {
				return failed(FailFormatMismatch)
			}
			return amountResult(scan, name)
		}
	}
	return failed(FailFormatMismatch)
}

func amountResult(scan amountScan, name string) ParseResult {
	return ParseResult{
		Candidate: name,
		Amount: &Amount{
			Value:    scan.value,
			Currency: scan.currency,
			Negative: scan.negative(),
			Grouping: scan.grouping,
			Abbrev:   scan.abbrev,
		},
	}
}

// ParseAmount 解析单个金额文本。
// hint 非空时只尝试被指定的候选格式（批量物化的快速路径），
// 不匹配直接返回失败，保证整列在同一格式下行为一致。
func (r *Registry) ParseAmount(text, hint string) ParseResult {
	scan, reason := scanAmount(text)
	if reason != "" {
		return failed(reason)
	}

	if hint != "" {
		cand, ok := r.Lookup(hint)
		if !ok || cand.Family != FamilyNumber {
			return failed(FailFormatMismatch)
		}
		return convertAmountAs(text, hint)
	}

	for _, p := range amountProfiles {
		if p.pred(scan) {
			return amountResult(scan, p.name)
		}
	}
	return failed(FailNoMatchingFormat)
}

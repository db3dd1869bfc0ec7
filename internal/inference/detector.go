package inference

import (
	"strings"
	"unicode"
)

// Detector 列类型检测器：对一列的有界样本逐值跑候选格式匹配，
// 按多数票决定类型与具体格式。同一输入序列的两次调用结果完全一致：
// 无随机性、不读时钟、候选按固定顺序遍历。
type Detector struct {
	reg *Registry
}

// NewDetector 创建检测器
func NewDetector(reg *Registry) *Detector {
	return &Detector{reg: reg}
}

// AnalyzeColumn 分析一列原始值，返回最可能的语义类型、置信度与具体格式。
// 全空列返回 ("string", 0.0, 无格式)，永不报错。
func (d *Detector) AnalyzeColumn(values []RawCell) ColumnTypeResult {
	opts := d.reg.Options()

	// 按原始顺序采样非空值（不乱序，可复现）
	sample := make([]RawCell, 0, opts.SampleCap)
	for _, c := range values {
		if c.IsNull() {
			continue
		}
		sample = append(sample, c)
		if len(sample) >= opts.SampleCap {
			break
		}
	}

	result := ColumnTypeResult{
		Type:       TypeString,
		SampleSize: len(sample),
		Evidence:   map[string]int{},
	}
	if len(sample) == 0 {
		return result
	}

	// 逐值尝试全部候选；一个值可以命中多个候选，但每族每值只记一票
	numberHits, dateHits := 0, 0
	for _, cell := range sample {
		numberHit, dateHit := false, false
		for _, cand := range d.reg.candidates {
			if !cand.Match(cell) {
				continue
			}
			result.Evidence[cand.Name]++
			switch cand.Family {
			case FamilyNumber:
				numberHit = true
			case FamilyDate:
				dateHit = true
			}
		}
		// 原生日期单元格已经是日期，无需文本候选命中
		if cell.Kind == KindDate {
			dateHit = true
			result.Evidence[FormatISODate]++
		}
		if numberHit {
			numberHits++
		}
		if dateHit {
			dateHits++
		}
	}

	// 族间多数票；平票时 number 优先（财务列更常见）
	family := FamilyNumber
	winner := numberHits
	if dateHits > numberHits {
		family = FamilyDate
		winner = dateHits
	}

	result.Confidence = float64(winner) / float64(len(sample))

	if winner == 0 {
		result.StringSubtype = d.ClassifyStringSubtype(sample)
		return result
	}

	// 族内取票数最高的候选；平票时按注册顺序（更具体者在前）
	best := ""
	bestCount := 0
	for _, cand := range d.reg.candidates {
		if cand.Family != family {
			continue
		}
		if n := result.Evidence[cand.Name]; n > bestCount {
			best = cand.Name
			bestCount = n
		}
	}

	// 低于阈值的列退化为 string：宁可保守也不能悄悄错型
	if result.Confidence < opts.ConfidenceThreshold {
		result.StringSubtype = d.ClassifyStringSubtype(sample)
		return result
	}

	if family == FamilyNumber {
		result.Type = TypeNumber
	} else {
		result.Type = TypeDate
	}
	result.DetectedFormat = best
	return result
}

// ClassifyStringSubtype 字符串列的次级分类，仅供参考：
// 低去重率 → 枚举/类别；字母数字混排 → 标识符；其余 → 自由文本。
func (d *Detector) ClassifyStringSubtype(sample []RawCell) StringSubtype {
	if len(sample) == 0 {
		return SubtypeFreeText
	}

	distinct := make(map[string]struct{}, len(sample))
	identifierLike := 0
	for _, c := range sample {
		s := trimmed(c.String())
		distinct[strings.ToLower(s)] = struct{}{}
		if looksLikeIdentifier(s) {
			identifierLike++
		}
	}

	ratio := float64(len(distinct)) / float64(len(sample))
	if len(sample) >= 4 && ratio <= 0.5 {
		return SubtypeCategory
	}
	if identifierLike*2 > len(sample) {
		return SubtypeIdentifier
	}
	return SubtypeFreeText
}

// looksLikeIdentifier 单个 token 内字母与数字混排（如 ACC-1042、INV20240315）
func looksLikeIdentifier(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

package inference

// Family 候选格式所属族
type Family string

const (
	FamilyNumber Family = "number"
	FamilyDate   Family = "date"
)

// 候选格式名。声明顺序即优先级：越靠前越具体，
// 同族同票数时靠前者胜出（§ detector 的平票规则）。
const (
	FormatIndianGrouping  = "Indian-grouping"
	FormatEUCurrency      = "EU-currency"
	FormatUSCurrency      = "US-currency"
	FormatParenNegative   = "parenthesized-negative"
	FormatTrailingNeg     = "trailing-negative"
	FormatAbbrevSuffix    = "abbreviated-suffix"
	FormatGenericNumber   = "generic-number"
	FormatExcelSerialDate = "excel-serial-date"
	FormatISODate         = "ISO-date"
	FormatMonthNameDate   = "month-name-date"
	FormatSlashDate       = "slash-date-ambiguous"
	FormatQuarter         = "quarter-notation"
)

// Candidate 一种具体文本编码的识别器：匹配判定 + 规范化转换。
// 无状态，进程启动时注册一次，候选之间互不依赖。
type Candidate struct {
	Name    string
	Family  Family
	Match   func(cell RawCell) bool
	Convert func(cell RawCell) ParseResult
}

// Options 推断参数
type Options struct {
	SampleCap           int     // 每列采样上限，默认 100
	ConfidenceThreshold float64 // 低于此置信度退化为 string，默认 0.6
}

const (
	defaultSampleCap           = 100
	defaultConfidenceThreshold = 0.6
)

func (o Options) withDefaults() Options {
	if o.SampleCap <= 0 {
		o.SampleCap = defaultSampleCap
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = defaultConfidenceThreshold
	}
	return o
}

// Registry 不可变的候选格式注册表。显式构造后传入检测器与解析调用，
// 不持有可变状态，可被任意多个 goroutine 并发使用。
type Registry struct {
	opts       Options
	candidates []Candidate // 声明顺序 = 平票优先序
	byName     map[string]Candidate
}

// NewRegistry 构造注册表，注册全部内置金额/日期候选格式
func NewRegistry(opts Options) *Registry {
	r := &Registry{opts: opts.withDefaults()}

	for _, p := range amountProfiles {
		p := p
		r.register(Candidate{
			Name:   p.name,
			Family: FamilyNumber,
			Match: func(cell RawCell) bool {
				if cell.IsNull() || cell.Kind == KindDate {
					return false
				}
				scan, reason := scanAmount(cell.String())
				return reason == "" && p.pred(scan)
			},
			Convert: func(cell RawCell) ParseResult {
				return convertAmountAs(cell.String(), p.name)
			},
		})
	}

	// 日期候选，按固定优先序注册。
	// Excel 序列日期只对电子表格原生数值单元格投票，自由文本列永不命中。
	r.register(Candidate{
		Name:   FormatExcelSerialDate,
		Family: FamilyDate,
		Match: func(cell RawCell) bool {
			return cell.Kind == KindNumber && serialInRange(cell.Number)
		},
		Convert: func(cell RawCell) ParseResult {
			return convertSerialDate(cell.String())
		},
	})
	r.register(dateCandidate(FormatISODate, matchISODate, convertISODate))
	r.register(dateCandidate(FormatMonthNameDate, matchMonthNameDate, convertMonthNameDate))
	r.register(dateCandidate(FormatSlashDate, matchSlashDate, convertSlashDate))
	r.register(dateCandidate(FormatQuarter, matchQuarter, convertQuarter))

	return r
}

func (r *Registry) register(c Candidate) {
	r.candidates = append(r.candidates, c)
	if r.byName == nil {
		r.byName = make(map[string]Candidate)
	}
	r.byName[c.Name] = c
}

// dateCandidate 基于文本形状匹配与转换函数构造日期候选
func dateCandidate(name string, match func(string) bool, convert func(string) ParseResult) Candidate {
	return Candidate{
		Name:   name,
		Family: FamilyDate,
		Match: func(cell RawCell) bool {
			if cell.Kind != KindText {
				return false
			}
			text := trimmed(cell.Text)
			return match(text) && convert(text).Parsed()
		},
		Convert: func(cell RawCell) ParseResult {
			return convert(trimmed(cell.String()))
		},
	}
}

// Candidates 返回指定族的候选格式（按优先序）
func (r *Registry) Candidates(family Family) []Candidate {
	out := make([]Candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		if c.Family == family {
			out = append(out, c)
		}
	}
	return out
}

// Lookup 按名称取候选格式
func (r *Registry) Lookup(name string) (Candidate, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Options 返回注册表携带的推断参数
func (r *Registry) Options() Options {
	return r.opts
}

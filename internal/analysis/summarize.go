package analysis

import (
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/KaramelBytes/geoportal/internal/table"
)

// Statistic row names, in display order.
const (
	StatCount  = "count"
	StatUnique = "unique"
	StatTop    = "top"
	StatFreq   = "freq"
	StatMean   = "mean"
	StatStd    = "std"
	StatMin    = "min"
	StatQ1     = "25%"
	StatMedian = "50%"
	StatQ3     = "75%"
	StatMax    = "max"
)

var (
	numericStats     = []string{StatCount, StatMean, StatStd, StatMin, StatQ1, StatMedian, StatQ3, StatMax}
	categoricalStats = []string{StatCount, StatUnique, StatTop, StatFreq}
	allStats         = []string{StatCount, StatUnique, StatTop, StatFreq, StatMean, StatStd, StatMin, StatQ1, StatMedian, StatQ3, StatMax}
)

// NA is the placeholder for statistics that do not apply to a column.
const NA = "N/A"

// Value is one statistic: a number, a label, or not applicable.
type Value struct {
	Num   float64
	Str   string
	IsNum bool
	IsNA  bool
}

func num(v float64) Value  { return Value{Num: v, IsNum: true} }
func text(s string) Value  { return Value{Str: s} }
func notApplicable() Value { return Value{IsNA: true} }

func (v Value) String() string {
	switch {
	case v.IsNA:
		return NA
	case v.IsNum:
		return formatStat(v.Num)
	default:
		return v.Str
	}
}

// MarshalText lets summaries serialize as plain strings.
func (v Value) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// Summary maps column name to statistic name to value.
type Summary map[string]map[string]Value

// Series is the plot data of a numeric column: row positions of the
// non-missing values and the values themselves.
type Series struct {
	X []int     `json:"x"`
	Y []float64 `json:"y"`
}

// Result bundles everything the visualisation page renders.
type Result struct {
	Summary Summary
	Series  map[string]Series
	Columns []string
	// Rows lists the statistic names present in Summary, in order.
	Rows []string
	// Headers is the describe index shown as the stats table header.
	Headers []string
}

// Summarize computes descriptive statistics for every column and plot
// series for numeric columns. A nil or column-less table yields empty output.
func Summarize(t *table.Table) Result {
	res := Result{Summary: Summary{}, Series: map[string]Series{}, Columns: []string{}, Rows: []string{}, Headers: []string{}}
	if t.NumCols() == 0 {
		return res
	}
	hasText, hasNumeric := false, false
	for _, c := range t.Columns {
		res.Columns = append(res.Columns, c.Name)
		if c.Kind == table.KindNumeric {
			hasNumeric = true
			res.Summary[c.Name] = describeNumeric(c.Cells)
			res.Series[c.Name] = seriesOf(c.Cells)
		} else {
			hasText = true
			res.Summary[c.Name] = describeText(c.Cells)
		}
	}
	for _, s := range allStats {
		if !hasText && (s == StatUnique || s == StatTop || s == StatFreq) {
			continue
		}
		if !hasNumeric && !slices.Contains(categoricalStats, s) {
			continue
		}
		res.Rows = append(res.Rows, s)
	}
	if hasNumeric {
		res.Headers = append(res.Headers, numericStats...)
	} else {
		res.Headers = append(res.Headers, categoricalStats...)
	}
	// Every column carries every present row, N/A where it does not apply.
	for _, stats := range res.Summary {
		for _, s := range res.Rows {
			if _, ok := stats[s]; !ok {
				stats[s] = notApplicable()
			}
		}
	}
	return res
}

func describeNumeric(cells []table.Cell) map[string]Value {
	vals := numericValues(cells)
	out := map[string]Value{StatCount: num(float64(len(vals)))}
	if len(vals) == 0 {
		return out
	}
	// Welford's online mean/variance.
	var mean, m2 float64
	for i, x := range vals {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	out[StatMean] = num(mean)
	if len(vals) > 1 {
		out[StatStd] = num(math.Sqrt(m2 / float64(len(vals)-1)))
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	out[StatMin] = num(sorted[0])
	out[StatQ1] = num(quantile(sorted, 0.25))
	out[StatMedian] = num(quantile(sorted, 0.5))
	out[StatQ3] = num(quantile(sorted, 0.75))
	out[StatMax] = num(sorted[len(sorted)-1])
	return out
}

func describeText(cells []table.Cell) map[string]Value {
	counts := map[string]int{}
	var order []string
	n := 0
	for _, c := range cells {
		if c.IsMissing() {
			continue
		}
		n++
		s := c.String()
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}
	out := map[string]Value{StatCount: num(float64(n))}
	if n == 0 {
		return out
	}
	top := order[0]
	for _, s := range order[1:] {
		if counts[s] > counts[top] {
			top = s
		}
	}
	out[StatUnique] = num(float64(len(counts)))
	out[StatTop] = text(top)
	out[StatFreq] = num(float64(counts[top]))
	return out
}

func seriesOf(cells []table.Cell) Series {
	s := Series{X: []int{}, Y: []float64{}}
	for i, c := range cells {
		if c.Kind == table.CellNumeric {
			s.X = append(s.X, i)
			s.Y = append(s.Y, c.Num)
		}
	}
	return s
}

func numericValues(cells []table.Cell) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.Kind == table.CellNumeric {
			out = append(out, c.Num)
		}
	}
	return out
}

// quantile interpolates linearly between closest ranks of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// formatStat rounds to six decimals for display.
func formatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return table.FormatNumber(v)
	}
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}

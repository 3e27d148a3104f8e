package analysis

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/geoportal/internal/table"
)

func mustParse(t *testing.T, csv string) *table.Table {
	t.Helper()
	tb, err := table.ParseCSV(strings.NewReader(csv), ',')
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	return tb
}

func TestClean_YearValueExample(t *testing.T) {
	tb := mustParse(t, "Year,Value\n\"2020\",\"1,000\"\n\"2021\",\"2,500\"\n")
	c := Clean(tb)

	year, _ := c.Column("Year")
	if year.Kind != table.KindText {
		t.Fatalf("Year kind = %v, want text", year.Kind)
	}
	if year.Cells[0].Str != "2020" || year.Cells[1].Str != "2021" {
		t.Fatalf("Year cells = %+v", year.Cells)
	}
	val, _ := c.Column("Value")
	if val.Kind != table.KindNumeric || val.Cells[0].Num != 1000 || val.Cells[1].Num != 2500 {
		t.Fatalf("Value column = %+v", val)
	}

	res := Summarize(c)
	s, ok := res.Series["Value"]
	if !ok {
		t.Fatalf("missing Value series")
	}
	if len(s.X) != 2 || s.X[0] != 0 || s.X[1] != 1 || s.Y[0] != 1000 || s.Y[1] != 2500 {
		t.Fatalf("series = %+v", s)
	}
	if _, ok := res.Series["Year"]; ok {
		t.Fatalf("Year must not be plotted")
	}
	if got := res.Summary["Value"][StatMean]; !got.IsNum || got.Num != 1750 {
		t.Fatalf("mean = %+v, want 1750", got)
	}
	if got := res.Summary["Year"][StatMean].String(); got != NA {
		t.Fatalf("Year mean = %q, want N/A", got)
	}
	if got := res.Summary["Year"][StatTop].String(); got != "2020" {
		t.Fatalf("Year top = %q", got)
	}
	if got := strings.Join(res.Columns, ","); got != "Year,Value" {
		t.Fatalf("columns = %s", got)
	}
}

func TestClean_ThousandsSeparators(t *testing.T) {
	tb := mustParse(t, "n\n\"12,345\"\n\" 7 \"\nabc\n")
	c := Clean(tb)
	col, _ := c.Column("n")
	if col.Cells[0].Num != 12345 || col.Cells[1].Num != 7 {
		t.Fatalf("cells = %+v", col.Cells)
	}
	if !col.Cells[2].IsMissing() {
		t.Fatalf("non-numeric text should become missing, got %+v", col.Cells[2])
	}
}

func TestClean_PreservesShape(t *testing.T) {
	inputs := []string{
		"a,b,c\n1,x,\n2,y,3\n,,\n",
		"Year\n2020\n\n2022\n",
		"only\n",
	}
	for _, in := range inputs {
		tb := mustParse(t, in)
		c := Clean(tb)
		if c.NumRows() != tb.NumRows() || c.NumCols() != tb.NumCols() {
			t.Fatalf("shape changed for %q: %dx%d -> %dx%d", in, tb.NumRows(), tb.NumCols(), c.NumRows(), c.NumCols())
		}
	}
}

func TestClean_YearAlwaysText(t *testing.T) {
	numericYear, _ := table.New(table.Column{Name: "Year", Kind: table.KindNumeric, Cells: []table.Cell{table.Numeric(1999), table.Missing()}})
	textYear, _ := table.New(table.Column{Name: "Year", Kind: table.KindText, Cells: []table.Cell{table.Text(" 2,001 "), table.Text("n/a")}})
	for _, tb := range []*table.Table{numericYear, textYear} {
		c := Clean(tb)
		col, _ := c.Column("Year")
		if col.Kind != table.KindText {
			t.Fatalf("Year kind = %v", col.Kind)
		}
		for _, cell := range col.Cells {
			if cell.Kind != table.CellText {
				t.Fatalf("Year cell %+v is not text", cell)
			}
		}
	}
	c := Clean(textYear)
	col, _ := c.Column("Year")
	if col.Cells[0].Str != "2001" || col.Cells[1].Str != "nan" {
		t.Fatalf("Year cells = %+v", col.Cells)
	}
}

// The Year override must come after numeric coercion; swapping the two passes
// would leave Year numeric.
func TestClean_YearPassOrdering(t *testing.T) {
	tb, _ := table.New(table.Column{Name: "Year", Kind: table.KindText, Cells: []table.Cell{table.Text("2020")}})

	swapped := tb.Clone()
	stripSeparators(swapped)
	restoreYear(swapped)
	coerceNumeric(swapped)
	if col, _ := swapped.Column("Year"); col.Kind != table.KindNumeric {
		t.Fatalf("sanity: swapped passes should leave Year numeric")
	}

	col, _ := Clean(tb).Column("Year")
	if col.Kind != table.KindText || col.Cells[0].Str != "2020" {
		t.Fatalf("Clean ran passes in the wrong order: %+v", col)
	}
}

func TestClean_Idempotent(t *testing.T) {
	tb := mustParse(t, "Year,Value,Label\n2020,\"1,000\",a\n,\"x\",b\n2022, 5 ,\n")
	once := Clean(tb)
	twice := Clean(once)
	if once.NumCols() != twice.NumCols() {
		t.Fatalf("column count changed")
	}
	for i := range once.Columns {
		a, b := once.Columns[i], twice.Columns[i]
		if a.Name != b.Name || a.Kind != b.Kind {
			t.Fatalf("column %d differs: %v/%v vs %v/%v", i, a.Name, a.Kind, b.Name, b.Kind)
		}
		for j := range a.Cells {
			if a.Cells[j] != b.Cells[j] {
				t.Fatalf("cell %s[%d]: %+v vs %+v", a.Name, j, a.Cells[j], b.Cells[j])
			}
		}
	}
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	tb := mustParse(t, "v\n\"1,5\"\n")
	_ = Clean(tb)
	col, _ := tb.Column("v")
	if col.Kind != table.KindText || col.Cells[0].Str != "1,5" {
		t.Fatalf("input mutated: %+v", col)
	}
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		in   table.Cell
		want table.Cell
	}{
		{table.Numeric(3), table.Numeric(3)},
		{table.Text("4.5"), table.Numeric(4.5)},
		{table.Text("four"), table.Missing()},
		{table.Missing(), table.Missing()},
	}
	for _, c := range cases {
		if got := Coerce(c.in); got != c.want {
			t.Errorf("Coerce(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	for _, tb := range []*table.Table{nil, {}} {
		res := Summarize(tb)
		if len(res.Summary) != 0 || len(res.Series) != 0 || len(res.Columns) != 0 {
			t.Fatalf("expected empty result, got %+v", res)
		}
	}
}

func TestSummarize_DescribeStats(t *testing.T) {
	tb, _ := table.New(table.Column{Name: "x", Kind: table.KindNumeric, Cells: []table.Cell{
		table.Numeric(1), table.Numeric(2), table.Missing(), table.Numeric(3), table.Numeric(4),
	}})
	res := Summarize(tb)
	st := res.Summary["x"]
	want := map[string]float64{StatCount: 4, StatMean: 2.5, StatMin: 1, StatQ1: 1.75, StatMedian: 2.5, StatQ3: 3.25, StatMax: 4}
	for k, v := range want {
		if st[k].Num != v {
			t.Errorf("%s = %v, want %v", k, st[k].Num, v)
		}
	}
	if math.Abs(st[StatStd].Num-1.2909944) > 1e-6 {
		t.Errorf("std = %v", st[StatStd].Num)
	}
	s := res.Series["x"]
	if len(s.X) != 4 || s.X[2] != 3 || s.Y[2] != 3 {
		t.Fatalf("series should skip the missing row: %+v", s)
	}
	if strings.Join(res.Rows, ",") != "count,mean,std,min,25%,50%,75%,max" {
		t.Fatalf("rows = %v", res.Rows)
	}
}

func TestSummarize_AllMissingAndSingleValue(t *testing.T) {
	tb, _ := table.New(
		table.Column{Name: "gone", Kind: table.KindNumeric, Cells: []table.Cell{table.Missing(), table.Missing()}},
		table.Column{Name: "one", Kind: table.KindNumeric, Cells: []table.Cell{table.Numeric(5), table.Missing()}},
	)
	res := Summarize(tb)
	if res.Summary["gone"][StatCount].Num != 0 || res.Summary["gone"][StatMean].String() != NA {
		t.Fatalf("gone = %+v", res.Summary["gone"])
	}
	if res.Summary["one"][StatStd].String() != NA {
		t.Fatalf("std of one value should be N/A")
	}
}

func TestResultText(t *testing.T) {
	res := Summarize(Clean(mustParse(t, "Year,Value\n2020,1\n2021,3\n")))
	out := res.Text()
	for _, want := range []string{"Year", "Value", "mean", "N/A", "2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "YEAR") || strings.Contains(out, "VALUE") {
		t.Fatalf("column names must be printed as given:\n%s", out)
	}
}

func TestRenderSeriesPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSeriesPNG(&buf, "Value", Series{X: []int{0, 1, 2}, Y: []float64{1, 4, 2}}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}
	buf.Reset()
	if err := RenderSeriesPNG(&buf, "flat", Series{X: []int{0}, Y: []float64{7}}); err != nil {
		t.Fatalf("single point: %v", err)
	}
	if err := RenderSeriesPNG(&buf, "none", Series{}); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

package table

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"

	"github.com/pierrec/lz4"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV_InfersKinds(t *testing.T) {
	in := "Year,Value,Region\n2020,\"1,000\",North\n2021,\"2,500\",\n"
	tb, err := ParseCSV(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if tb.NumCols() != 3 || tb.NumRows() != 2 {
		t.Fatalf("shape = %dx%d, want 2x3", tb.NumRows(), tb.NumCols())
	}
	year, _ := tb.Column("Year")
	if year.Kind != KindNumeric || year.Cells[1].Num != 2021 {
		t.Fatalf("Year column = %+v", year)
	}
	val, _ := tb.Column("Value")
	if val.Kind != KindText || val.Cells[0].Str != "1,000" {
		t.Fatalf("Value column should stay text before cleaning: %+v", val)
	}
	region, _ := tb.Column("Region")
	if !region.Cells[1].IsMissing() {
		t.Fatalf("blank cell should be missing, got %+v", region.Cells[1])
	}
}

func TestParseCSV_BOMAndSemicolon(t *testing.T) {
	in := "\xef\xbb\xbfa;b\n1;x\n"
	tb, err := ParseCSV(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if got := tb.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("names = %q", got)
	}
}

func TestParseCSV_HeaderNames(t *testing.T) {
	tb, err := ParseCSV(strings.NewReader("x,,x\n1,2,3\n"), ',')
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	want := []string{"x", "Unnamed: 1", "x.1"}
	for i, n := range tb.Names() {
		if n != want[i] {
			t.Fatalf("names = %q, want %q", tb.Names(), want)
		}
	}
}

func TestParseCSV_HeaderSuffixClash(t *testing.T) {
	cases := map[string][]string{
		"a,a,a.1\n1,2,3\n":     {"a", "a.1", "a.1.1"},
		"a,a.1,a\n1,2,3\n":     {"a", "a.1", "a.2"},
		"b,b,b,b.2\n1,2,3,4\n": {"b", "b.1", "b.2", "b.2.1"},
	}
	for in, want := range cases {
		tb, err := ParseCSV(strings.NewReader(in), ',')
		if err != nil {
			t.Fatalf("ParseCSV(%q): %v", in, err)
		}
		got := tb.Names()
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Fatalf("names for %q = %q, want %q", in, got, want)
		}
	}
}

func TestParseCSV_ShortAndLongRows(t *testing.T) {
	tb, err := ParseCSV(strings.NewReader("a,b\n1\n"), ',')
	if err != nil {
		t.Fatalf("short row: %v", err)
	}
	if b, _ := tb.Column("b"); !b.Cells[0].IsMissing() {
		t.Fatalf("short row should be padded with missing")
	}

	_, err = ParseCSV(strings.NewReader("a,b\n1,2,3\n"), ',')
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 2 {
		t.Fatalf("expected ParseError on line 2, got %v", err)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	tb, err := ParseCSV(strings.NewReader(""), ',')
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if !tb.Empty() {
		t.Fatalf("expected empty table")
	}
}

func TestParse_Compressed(t *testing.T) {
	csv := []byte("a,b\n1,2\n3,4\n")

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write(csv)
	_ = zw.Close()

	var lz bytes.Buffer
	lw := lz4.NewWriter(&lz)
	_, _ = lw.Write(csv)
	_ = lw.Close()

	for name, data := range map[string][]byte{"data.csv.gz": gz.Bytes(), "data.csv.lz4": lz.Bytes()} {
		tb, err := Parse(name, data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if tb.NumRows() != 2 || tb.NumCols() != 2 {
			t.Fatalf("%s: shape %dx%d", name, tb.NumRows(), tb.NumCols())
		}
	}
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{{"Year", "Value"}, {2020, 1000}, {2021, 2500}}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	tb, err := Parse("book.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, ok := tb.Column("Value")
	if !ok || v.Kind != KindNumeric || v.Cells[1].Num != 2500 {
		t.Fatalf("Value column = %+v", v)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	orig, err := New(
		Column{Name: "Year", Kind: KindText, Cells: []Cell{Text("2020"), Text("nan")}},
		Column{Name: "Value", Kind: KindNumeric, Cells: []Cell{Numeric(1.5), Missing()}},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	blob, err := Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(blob)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	y, _ := got.Column("Year")
	v, _ := got.Column("Value")
	if y.Kind != KindText || y.Cells[1].Str != "nan" || v.Cells[0].Num != 1.5 || !v.Cells[1].IsMissing() {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	cases := []string{
		`not json`,
		`{"columns":[{"name":"a","kind":"blob","cells":[]}]}`,
		`{"columns":[{"name":"a","kind":"numeric","cells":[1]},{"name":"b","kind":"numeric","cells":[]}]}`,
		`{"rows":[]}`,
	}
	for _, c := range cases {
		if _, err := Unmarshal([]byte(c)); err == nil {
			t.Fatalf("expected error for %s", c)
		}
	}
}

func TestParseNumber(t *testing.T) {
	cases := map[string]bool{"12": true, " 3.5 ": true, "-1e3": true, "": false, "NaN": false, "inf": false, "0x10": false, "1_000": false, "abc": false}
	for in, ok := range cases {
		if _, got := ParseNumber(in); got != ok {
			t.Errorf("ParseNumber(%q) ok=%v, want %v", in, got, ok)
		}
	}
}

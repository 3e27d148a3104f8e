package analysis

import (
	"github.com/jedib0t/go-pretty/v6/table"
	ptext "github.com/jedib0t/go-pretty/v6/text"
)

// Text renders the summary as a terminal table: one row per statistic, one
// column per table column.
func (r Result) Text() string {
	if len(r.Columns) == 0 {
		return "(no data)\n"
	}
	tw := table.NewWriter()
	header := table.Row{"stat"}
	for _, c := range r.Columns {
		header = append(header, c)
	}
	tw.AppendHeader(header)
	for _, s := range r.Rows {
		row := table.Row{s}
		for _, c := range r.Columns {
			row = append(row, r.Summary[c][s].String())
		}
		tw.AppendRow(row)
	}
	tw.SetStyle(TableStyle())
	return tw.Render() + "\n"
}

// TableStyle is go-pretty's light style with headers printed as given;
// column names are data and must not be upper-cased.
func TableStyle() table.Style {
	style := table.StyleLight
	style.Format.Header = ptext.FormatDefault
	return style
}

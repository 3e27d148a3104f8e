package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/geoportal/internal/analysis"
	"github.com/KaramelBytes/geoportal/internal/store"
	"github.com/KaramelBytes/geoportal/internal/table"
	"github.com/KaramelBytes/geoportal/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descTable     string
	descDelimiter string
	descJSON      bool
	descPlotDir   string
	descOutput    string
)

var describeCmd = &cobra.Command{
	Use:   "describe [file]",
	Short: "Clean and summarize a CSV/XLSX file or a database table",
	Example: `  geoportal describe data.csv
  geoportal describe data.csv.gz --json
  geoportal describe --table population --plot-dir ./plots`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 0) == (descTable == "") {
			return errors.New("provide either a file or --table")
		}
		var raw *table.Table
		var err error
		if descTable != "" {
			raw, err = fetchTable(cmd, descTable)
		} else {
			raw, err = readTableFile(args[0], descDelimiter)
		}
		if err != nil {
			return err
		}

		res := analysis.Summarize(analysis.Clean(raw))

		var out []byte
		if descJSON {
			out, err = utils.PrettyJSON(struct {
				Columns []string                   `json:"columns"`
				Stats   analysis.Summary           `json:"stats"`
				Series  map[string]analysis.Series `json:"series"`
			}{res.Columns, res.Summary, res.Series})
			if err != nil {
				return err
			}
		} else {
			out = []byte(res.Text())
		}

		if descOutput != "" {
			if err := utils.SafeWriteFile(descOutput, out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutput)
		} else {
			fmt.Fprint(cmd.OutOrStdout(), string(out))
		}

		if descPlotDir != "" {
			n, err := writePlots(descPlotDir, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d plot(s) to %s\n", n, descPlotDir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descTable, "table", "t", "", "database table to summarize instead of a file")
	describeCmd.Flags().StringVar(&descDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (auto-detect if omitted)")
	describeCmd.Flags().BoolVar(&descJSON, "json", false, "print statistics and series as JSON")
	describeCmd.Flags().StringVar(&descPlotDir, "plot-dir", "", "write one PNG line plot per numeric column to this directory")
	describeCmd.Flags().StringVarP(&descOutput, "output", "o", "", "optional path to write the summary")
}

func readTableFile(path, delim string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if delim == "" {
		return table.Parse(filepath.Base(path), data)
	}
	var r rune
	switch delim {
	case ",":
		r = ','
	case ";":
		r = ';'
	case "\t", "tab":
		r = '\t'
	default:
		return nil, fmt.Errorf("unsupported --delimiter: %s", delim)
	}
	return table.ParseCSV(bytes.NewReader(data), r)
}

func fetchTable(cmd *cobra.Command, name string) (*table.Table, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cmd.Context(), c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.FetchTable(cmd.Context(), name)
}

// writePlots renders every non-empty series; column names become file names.
func writePlots(dir string, res analysis.Result) (int, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return 0, fmt.Errorf("create plot dir: %w", err)
	}
	n := 0
	used := map[string]bool{}
	for _, col := range res.Columns {
		s, ok := res.Series[col]
		if !ok || len(s.Y) == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := analysis.RenderSeriesPNG(&buf, col, s); err != nil {
			return n, fmt.Errorf("plot %s: %w", col, err)
		}
		path := filepath.Join(dir, uniquePlotName(col, used))
		if err := utils.SafeWriteFile(path, buf.Bytes(), 0o644); err != nil {
			return n, fmt.Errorf("write plot: %w", err)
		}
		n++
	}
	return n, nil
}

// uniquePlotName returns plotFileName(col), adding _2, _3, ... when a
// previous column already took the name. Names compare case-insensitively.
func uniquePlotName(col string, used map[string]bool) string {
	name := plotFileName(col)
	stem := strings.TrimSuffix(name, ".png")
	for i := 2; used[strings.ToLower(name)]; i++ {
		name = stem + "_" + strconv.Itoa(i) + ".png"
	}
	used[strings.ToLower(name)] = true
	return name
}

func plotFileName(col string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, col)
	if safe == "" {
		safe = "column"
	}
	return safe + ".png"
}

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/KaramelBytes/geoportal/internal/analysis"
	"github.com/KaramelBytes/geoportal/internal/store"
	"github.com/KaramelBytes/geoportal/internal/uploads"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List database tables available for visualisation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			names, err := st.ListTables(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tables found.")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

var (
	uploadsLimit int
)

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Show the most recent portal uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			return printRecentUploads(ctx, cmd.OutOrStdout(), st, uploadsLimit)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the portal's database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Database is up to date")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(migrateCmd)
	uploadsCmd.Flags().IntVarP(&uploadsLimit, "limit", "n", 6, "number of uploads to show")
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cmd.Context(), c.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cmd.Context(), st)
}

func printRecentUploads(ctx context.Context, w io.Writer, l uploads.Lister, limit int) error {
	recent, err := l.RecentUploads(ctx, limit)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		fmt.Fprintln(w, "No files uploaded yet.")
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Title", "File", "Size", "Uploaded by", "Uploaded"})
	for _, u := range recent {
		tw.AppendRow(table.Row{u.Title, u.OriginalName, u.Size, u.UploadedBy, u.UploadedAt.Format("2006-01-02 15:04")})
	}
	tw.SetStyle(analysis.TableStyle())
	tw.Render()
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/KaramelBytes/geoportal/internal/analysis"
	"github.com/KaramelBytes/geoportal/internal/geo"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// layerSource is the part of the GeoServer client the layer commands use.
type layerSource interface {
	ListLayers(ctx context.Context) ([]geo.Layer, error)
	Features(ctx context.Context, layer string) (*geo.FeatureSample, error)
	Metadata(ctx context.Context, layer string) (geo.Metadata, error)
	WMSURL() string
	QualifiedName(layer string) string
}

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Browse layers published in the GeoServer workspace",
	Example: `  geoportal layers list
  geoportal layers show rivers
  geoportal layers metadata rivers`,
}

var layersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published layers",
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := geoFromConfig()
		if err != nil {
			return err
		}
		return printLayers(cmd.Context(), cmd.OutOrStdout(), gc)
	},
}

var layersShowCmd = &cobra.Command{
	Use:   "show <layer>",
	Short: "Show sample features of a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := geoFromConfig()
		if err != nil {
			return err
		}
		return printFeatures(cmd.Context(), cmd.OutOrStdout(), gc, args[0])
	},
}

var layersMetadataCmd = &cobra.Command{
	Use:   "metadata <layer>",
	Short: "Show layer metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := geoFromConfig()
		if err != nil {
			return err
		}
		return printMetadata(cmd.Context(), cmd.OutOrStdout(), gc, args[0])
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
	layersCmd.AddCommand(layersListCmd)
	layersCmd.AddCommand(layersShowCmd)
	layersCmd.AddCommand(layersMetadataCmd)
}

func geoFromConfig() (*geo.Client, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	return newGeoClient(c.GeoServerURL, c.GeoServerWorkspace, c.GeoServerUser, c.GeoServerPassword,
		c.WFSMaxFeatures, time.Duration(c.HTTPTimeoutSec)*time.Second), nil
}

func printLayers(ctx context.Context, w io.Writer, src layerSource) error {
	layers, err := src.ListLayers(ctx)
	if err != nil {
		return err
	}
	if len(layers) == 0 {
		fmt.Fprintln(w, "No published layers found.")
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Name", "Owner", "Updated"})
	for _, l := range layers {
		tw.AppendRow(table.Row{l.Name, l.Owner, l.Updated})
	}
	tw.SetStyle(analysis.TableStyle())
	tw.Render()
	return nil
}

func printFeatures(ctx context.Context, w io.Writer, src layerSource, layer string) error {
	sample, err := src.Features(ctx, layer)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Layer: %s\nWMS:   %s\n", src.QualifiedName(layer), src.WMSURL())
	if len(sample.Columns) == 0 {
		fmt.Fprintln(w, "No features available.")
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	header := make(table.Row, 0, len(sample.Columns))
	for _, c := range sample.Columns {
		header = append(header, c)
	}
	tw.AppendHeader(header)
	for _, r := range sample.Rows {
		row := make(table.Row, 0, len(r))
		for _, v := range r {
			row = append(row, v)
		}
		tw.AppendRow(row)
	}
	tw.SetStyle(analysis.TableStyle())
	tw.Render()
	return nil
}

func printMetadata(ctx context.Context, w io.Writer, src layerSource, layer string) error {
	md, err := src.Metadata(ctx, layer)
	if err != nil {
		fmt.Fprintf(w, "⚠ Warning: metadata unavailable, showing defaults: %v\n", err)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRows([]table.Row{
		{"Name", md.Name},
		{"Owner", md.Owner},
		{"Updated", md.Updated},
		{"Abstract", md.Abstract},
		{"Keywords", md.Keywords},
		{"Bounding box", md.BBox},
		{"CRS", md.CRS},
		{"Format", md.Format},
	})
	tw.SetStyle(analysis.TableStyle())
	tw.Render()
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

const maxCellWidth = 60

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <content-type> [field=value ...]",
		Short: "Print the formatted nodes of a content type",
		Long: "Runs the same query and formatting as GET /nodes/<content-type>.\n" +
			"Each field=value argument adds a filter condition.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilterArgs(args[1:])
			if err != nil {
				return err
			}

			svc, cleanup, err := ctx.config.BuildService(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to build service: %w", err)
			}
			defer cleanup()

			records, err := svc.ListNodes(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), records)
			case "table":
				return writeTable(cmd.OutOrStdout(), records)
			default:
				return fmt.Errorf("invalid format %q (use json or table)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or table")
	return cmd
}

func parseFilterArgs(args []string) (noderest.QueryFilter, error) {
	filter := make(noderest.QueryFilter, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q, expected field=value", arg)
		}
		if _, dup := filter[field]; !dup {
			filter[field] = value
		}
	}
	return filter, nil
}

func writeJSON(w io.Writer, records []*noderest.OutputRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeTable(w io.Writer, records []*noderest.OutputRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No nodes found.")
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	keys := columnKeys(records)
	header := make(table.Row, len(keys))
	for i, k := range keys {
		header[i] = k
	}
	tw.AppendHeader(header)

	for _, rec := range records {
		row := make(table.Row, len(keys))
		for i, k := range keys {
			v, ok := rec.Get(k)
			if !ok {
				row[i] = ""
				continue
			}
			cell, err := cellText(v)
			if err != nil {
				return err
			}
			row[i] = cell
		}
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, len(keys))
	for i := range keys {
		configs[i] = table.ColumnConfig{Number: i + 1, WidthMax: maxCellWidth, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)

	tw.Render()
	return nil
}

// columnKeys returns every record key in order of first appearance.
func columnKeys(records []*noderest.OutputRecord) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, k := range rec.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func cellText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

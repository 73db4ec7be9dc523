package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/analyze"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file-or-directory>",
	Short: "Inspect lead file quality before importing",
	Long:  "Maps each file's columns to lead fields, reports fill and format quality per field, and scores import readiness. Directories are ranked best-first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		info, err := os.Stat(args[0])
		if err != nil {
			return eris.Wrapf(err, "stat %s", args[0])
		}

		if info.IsDir() {
			report, err := analyze.Directory(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(os.Stdout, report)
			}
			formatDirectoryReport(os.Stdout, report)
			return nil
		}

		report, err := analyze.File(args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, report)
		}
		formatFileReport(os.Stdout, report)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "emit the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportFieldOrder fixes the display order of analyzed fields.
var reportFieldOrder = []analyze.Field{
	analyze.FieldName, analyze.FieldFirstName, analyze.FieldLastName,
	analyze.FieldEmail, analyze.FieldPhone, analyze.FieldCompany,
	analyze.FieldTitle, analyze.FieldRevenue,
}

func formatFileReport(out io.Writer, r *analyze.Report) {
	fmt.Fprintf(out, "%s  (layout: %s, %d rows, score %d/10)\n\n", r.File, r.Layout, r.Rows, r.Score)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tCOLUMN\tFILL\tVALID\tSAMPLES")
	fmt.Fprintln(w, "-----\t------\t----\t-----\t-------")
	for _, field := range reportFieldOrder {
		stats, ok := r.Fields[field]
		if !ok {
			continue
		}
		valid := "-"
		if field == analyze.FieldEmail || field == analyze.FieldPhone {
			valid = fmt.Sprintf("%.0f%%", stats.ValidPct())
		}
		samples := strings.Join(stats.Samples, ", ")
		if len(samples) > 60 {
			samples = samples[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%s\n", field, stats.Column, stats.FillPct(), valid, samples)
	}
	_ = w.Flush()

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(out)
		for _, rec := range r.Recommendations {
			fmt.Fprintf(out, "  - %s\n", rec)
		}
	}
}

func formatDirectoryReport(out io.Writer, d *analyze.DirectoryReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tLAYOUT\tROWS\tSCORE\tNOTES")
	fmt.Fprintln(w, "----\t------\t----\t-----\t-----")
	for _, r := range d.Reports {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/10\t%d\n", r.File, r.Layout, r.Rows, r.Score, len(r.Recommendations))
	}
	for _, f := range d.Failed {
		fmt.Fprintf(w, "%s\tunreadable\t-\t-\t%s\n", f.File, f.Reason)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d files, %d rows total\n", len(d.Reports), d.TotalRows)
}

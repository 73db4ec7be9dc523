package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/estimate"
	"github.com/sells-group/leadgen-cli/internal/layout"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [file...]",
	Short: "Import lead files into a processed run",
	Long:  "Detects each file's layout, normalizes and deduplicates the leads, estimates deal values, records the run, and writes the canonical CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("process"); err != nil {
			return err
		}

		inputDir, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if output == "" {
			output = cfg.Pipeline.Output
		}

		files := args
		if len(files) == 0 {
			var err error
			files, err = collectInputFiles(inputDir)
			if err != nil {
				return err
			}
		}
		if len(files) == 0 {
			return eris.Errorf("no lead files found in %s (want .csv, .txt, or .xlsx)", inputDir)
		}

		if dryRun {
			return printDetection(os.Stdout, files)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		res, err := pipeline.New(st).Run(ctx, files)
		if err != nil {
			return err
		}

		if output != "" {
			if err := pipeline.ExportCSV(res.Leads, output); err != nil {
				return err
			}
		}

		formatRunResult(os.Stdout, res, output)
		return nil
	},
}

func init() {
	processCmd.Flags().String("input", "", "directory to scan for lead files (default from config)")
	processCmd.Flags().String("output", "", "path for the canonical CSV export (default from config)")
	processCmd.Flags().Bool("dry-run", false, "detect layouts and row counts without importing")
	rootCmd.AddCommand(processCmd)
}

// leadFileExts are the file types the importer accepts.
var leadFileExts = map[string]bool{".csv": true, ".txt": true, ".xlsx": true}

// collectInputFiles lists importable files directly inside dir, sorted by
// name so runs are reproducible.
func collectInputFiles(dir string) ([]string, error) {
	if dir == "" {
		dir = cfg.Pipeline.InputDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read input dir %s", dir)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if leadFileExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// printDetection reports each file's detected layout without importing.
func printDetection(out io.Writer, files []string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tLAYOUT\tROWS")
	fmt.Fprintln(w, "----\t------\t----")

	for _, file := range files {
		header, rows, err := pipeline.ReadFile(file)
		if err != nil {
			fmt.Fprintf(w, "%s\tunreadable\t-\n", filepath.Base(file))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", filepath.Base(file), layout.Detect(header), len(rows))
	}
	return w.Flush()
}

// formatRunResult prints the import summary.
func formatRunResult(out io.Writer, res *pipeline.Result, output string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if res.RunID != "" {
		fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	}
	for _, f := range res.Summary.Files {
		fmt.Fprintf(w, "  %s\t%s\t%d read, %d mapped\n", f.File, f.Layout, f.Read, f.Mapped)
	}
	for _, f := range res.Summary.FailedFiles {
		fmt.Fprintf(w, "  %s\tFAILED\t%s\n", f.File, f.Reason)
	}

	fmt.Fprintf(w, "Total read:\t%d\n", res.Summary.TotalRead)
	fmt.Fprintf(w, "Mapped:\t%d\n", res.Summary.Mapped)
	fmt.Fprintf(w, "Duplicates removed:\t%d\n", res.Summary.Duplicates)
	fmt.Fprintf(w, "Invalid dropped:\t%d\n", res.Summary.Invalid)
	fmt.Fprintf(w, "Final leads:\t%d\n", res.Summary.Final)

	total := decimal.Zero
	for _, lead := range res.Leads {
		total = total.Add(lead.EstimatedValue)
	}
	fmt.Fprintf(w, "Estimated pipeline value:\t%s\n", estimate.FormatValue(total))

	if output != "" {
		fmt.Fprintf(w, "Exported:\t%s\n", output)
	}
	_ = w.Flush()
}

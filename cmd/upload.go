package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Push a processed run's leads to ClickUp",
	Long:  "Creates one task per lead in the configured ClickUp list, batched and rate limited. Phone numbers are attached in a follow-up update per task. Use --resume to continue an interrupted upload.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runID, _ := cmd.Flags().GetString("run")
		listID, _ := cmd.Flags().GetString("list")
		limit, _ := cmd.Flags().GetInt("limit")
		resume, _ := cmd.Flags().GetBool("resume")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		if listID != "" {
			cfg.ClickUp.ListID = listID
		}
		if batchSize > 0 {
			cfg.ClickUp.BatchSize = batchSize
		}
		if err := cfg.Validate("upload"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if runID == "" {
			runID, err = latestCompleteRun(ctx, st)
			if err != nil {
				return err
			}
		}

		client := newClickUpClient()
		mapping, err := resolveMapping(ctx, client, cfg.ClickUp.ListID)
		if err != nil {
			return err
		}

		uploader := upload.New(client, st, upload.Config{
			ListID:      cfg.ClickUp.ListID,
			Mapping:     mapping,
			BatchSize:   cfg.ClickUp.BatchSize,
			Concurrency: cfg.ClickUp.Concurrency,
			Limit:       limit,
			Resume:      resume,
		})

		res, err := uploader.Run(ctx, runID)
		if err != nil {
			return err
		}

		formatUploadResult(os.Stdout, runID, res)
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("run", "", "run ID to upload (default: most recent complete run)")
	uploadCmd.Flags().String("list", "", "destination ClickUp list ID (default from config)")
	uploadCmd.Flags().Int("limit", 0, "upload only the first N leads (0 = all)")
	uploadCmd.Flags().Bool("resume", false, "skip leads that already have a task from an earlier upload")
	uploadCmd.Flags().Int("batch-size", 0, "leads per checkpoint batch (default from config)")
	rootCmd.AddCommand(uploadCmd)
}

// latestCompleteRun returns the most recent complete run's ID.
func latestCompleteRun(ctx context.Context, st store.Store) (string, error) {
	runs, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatusComplete, Limit: 1})
	if err != nil {
		return "", eris.Wrap(err, "list runs")
	}
	if len(runs) == 0 {
		return "", eris.New("no complete runs found; run `leadgen-cli process` first")
	}
	return runs[0].ID, nil
}

// formatUploadResult prints the upload outcome.
func formatUploadResult(out io.Writer, runID string, res *upload.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", truncateID(runID))
	fmt.Fprintf(w, "Tasks created:\t%d\n", res.Created)
	fmt.Fprintf(w, "Skipped (already uploaded):\t%d\n", res.Skipped)
	fmt.Fprintf(w, "Failed:\t%d\n", len(res.Failed))
	_ = w.Flush()

	if len(res.Failed) > 0 {
		fmt.Fprintln(out)
		fw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(fw, "POS\tLEAD\tREASON")
		for _, f := range res.Failed {
			fmt.Fprintf(fw, "%d\t%s\t%s\n", f.Position, f.Lead, f.Reason)
		}
		_ = fw.Flush()
		fmt.Fprintln(out, "\nRerun with --resume to retry only the failed leads.")
	}
}

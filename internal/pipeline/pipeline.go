// Package pipeline orchestrates the lead import flow: read, detect, map,
// estimate, dedupe, validate.
package pipeline

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/dedupe"
	"github.com/sells-group/leadgen-cli/internal/estimate"
	"github.com/sells-group/leadgen-cli/internal/layout"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Pipeline runs lead imports and records each run in the store.
type Pipeline struct {
	store store.Store
}

// New creates a Pipeline backed by the given store.
func New(st store.Store) *Pipeline {
	return &Pipeline{store: st}
}

// Result is the outcome of one import run.
type Result struct {
	RunID   string
	Leads   []model.Lead
	Summary model.Summary
}

// Run processes the files and persists the run record and its leads.
func (p *Pipeline) Run(ctx context.Context, files []string) (*Result, error) {
	log := zap.L().With(zap.Int("files", len(files)))
	log.Info("pipeline: starting import run")

	run, err := p.store.CreateRun(ctx, files)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	res, err := Process(ctx, files)
	if err != nil {
		p.failRun(ctx, run.ID, err)
		return nil, err
	}
	res.RunID = run.ID

	if err := p.store.SaveLeads(ctx, run.ID, res.Leads); err != nil {
		err = eris.Wrap(err, "pipeline: save leads")
		p.failRun(ctx, run.ID, err)
		return nil, err
	}
	if err := p.store.CompleteRun(ctx, run.ID, &res.Summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}

	log.Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("total_read", res.Summary.TotalRead),
		zap.Int("mapped", res.Summary.Mapped),
		zap.Int("duplicates", res.Summary.Duplicates),
		zap.Int("invalid", res.Summary.Invalid),
		zap.Int("final", res.Summary.Final),
		zap.Int("failed_files", len(res.Summary.FailedFiles)),
	)
	return res, nil
}

func (p *Pipeline) failRun(ctx context.Context, id string, cause error) {
	if err := p.store.FailRun(ctx, id, cause.Error()); err != nil {
		zap.L().Warn("pipeline: failed to record run failure", zap.String("run_id", id), zap.Error(err))
	}
}

// Process runs the core transformation over the files with no persistence.
// Files are processed strictly sequentially; dedup correctness depends on a
// stable encounter order. A file that cannot be read is recorded in the
// summary and skipped, never fatal. The only error returned is caller
// cancellation between files.
func Process(ctx context.Context, files []string) (*Result, error) {
	res := &Result{}
	var leads []model.Lead

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: cancelled")
		}
		fileLeads, fileSummary, err := processFile(file)
		if err != nil {
			zap.L().Warn("pipeline: file failed", zap.String("file", file), zap.Error(err))
			res.Summary.FailedFiles = append(res.Summary.FailedFiles, model.FileFailure{
				File:   file,
				Reason: err.Error(),
			})
			continue
		}
		res.Summary.Files = append(res.Summary.Files, fileSummary)
		res.Summary.TotalRead += fileSummary.Read
		res.Summary.Mapped += fileSummary.Mapped
		leads = append(leads, fileLeads...)
	}

	merged, dups := dedupe.Merge(leads)
	res.Summary.Duplicates = dups

	res.Leads = make([]model.Lead, 0, len(merged))
	for _, lead := range merged {
		if !lead.Valid() {
			res.Summary.Invalid++
			continue
		}
		res.Leads = append(res.Leads, lead)
	}
	res.Summary.Final = len(res.Leads)
	return res, nil
}

// processFile reads one file and maps its rows to estimated leads. Layout
// detection happens once, from the header alone.
func processFile(file string) ([]model.Lead, model.FileSummary, error) {
	header, rows, err := ReadFile(file)
	if err != nil {
		return nil, model.FileSummary{}, err
	}

	kind := layout.Detect(header)
	mapper := layout.NewMapper(filepath.Base(file), header, kind)

	leads := make([]model.Lead, 0, len(rows))
	for _, rec := range rows {
		lead, ok := mapper.Map(rec)
		if !ok {
			continue
		}
		lead.EstimatedValue = estimate.Value(lead)
		leads = append(leads, lead)
	}

	summary := model.FileSummary{
		File:   filepath.Base(file),
		Layout: kind,
		Read:   len(rows),
		Mapped: len(leads),
	}
	zap.L().Info("pipeline: file processed",
		zap.String("file", summary.File),
		zap.String("layout", string(kind)),
		zap.Int("read", summary.Read),
		zap.Int("mapped", summary.Mapped),
	)
	return leads, summary, nil
}

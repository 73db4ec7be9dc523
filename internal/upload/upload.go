// Package upload pushes the processed leads of a stored run into a ClickUp
// list, checkpointing created task IDs so an interrupted pass can resume.
package upload

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/clickup"
)

const (
	defaultBatchSize   = 5
	defaultConcurrency = 3
)

// Config controls a single upload pass.
type Config struct {
	// ListID is the destination ClickUp list.
	ListID string
	// Mapping resolves lead fields to custom field IDs on the list.
	Mapping clickup.FieldMapping
	// BatchSize is the number of leads between task-link checkpoints.
	BatchSize int
	// Concurrency caps in-flight task creations within a batch.
	Concurrency int
	// Limit truncates the upload to the first N leads. Zero uploads all.
	Limit int
	// Resume skips positions that already have a task from an earlier pass.
	Resume bool
}

// TaskFailure records one lead that could not be uploaded.
type TaskFailure struct {
	Position int    `json:"position"`
	Lead     string `json:"lead"`
	Reason   string `json:"reason"`
}

// Result summarizes an upload pass.
type Result struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Failed  []TaskFailure `json:"failed,omitempty"`
}

// Uploader creates one ClickUp task per lead of a run.
type Uploader struct {
	client clickup.Client
	store  store.Store
	cfg    Config
}

func New(client clickup.Client, st store.Store, cfg Config) *Uploader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Uploader{client: client, store: st, cfg: cfg}
}

// Run uploads the leads of runID. A failed task creation is recorded in the
// result and the pass continues; task links are saved after every batch so a
// rerun with Resume picks up where this one stopped.
func (u *Uploader) Run(ctx context.Context, runID string) (*Result, error) {
	leads, err := u.store.GetLeads(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "upload: load leads for run %s", runID)
	}
	if len(leads) == 0 {
		return nil, eris.Errorf("upload: run %s has no leads", runID)
	}

	uploaded := map[int]string{}
	if u.cfg.Resume {
		uploaded, err = u.store.ListTaskLinks(ctx, runID)
		if err != nil {
			return nil, eris.Wrapf(err, "upload: load task links for run %s", runID)
		}
	}

	total := len(leads)
	if u.cfg.Limit > 0 && u.cfg.Limit < total {
		total = u.cfg.Limit
	}

	zap.L().Info("upload: starting",
		zap.String("run_id", runID),
		zap.String("list_id", u.cfg.ListID),
		zap.Int("leads", total),
		zap.Int("already_uploaded", len(uploaded)),
	)

	res := &Result{}
	for batchStart := 0; batchStart < total; batchStart += u.cfg.BatchSize {
		batchEnd := min(batchStart+u.cfg.BatchSize, total)

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(u.cfg.Concurrency)

		var mu sync.Mutex
		var links []store.TaskLink

		for pos := batchStart; pos < batchEnd; pos++ {
			if _, ok := uploaded[pos]; ok {
				res.Skipped++
				continue
			}
			lead := leads[pos]
			g.Go(func() error {
				task, err := u.uploadOne(gCtx, lead)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					zap.L().Warn("upload: task creation failed",
						zap.Int("position", pos),
						zap.String("lead", lead.FullName),
						zap.Error(err),
					)
					res.Failed = append(res.Failed, TaskFailure{
						Position: pos,
						Lead:     lead.FullName,
						Reason:   err.Error(),
					})
					return nil
				}
				links = append(links, store.TaskLink{Position: pos, TaskID: task.ID})
				res.Created++
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}

		if len(links) > 0 {
			sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })
			if err := u.store.SaveTaskLinks(ctx, runID, links); err != nil {
				return res, eris.Wrapf(err, "upload: record task links for run %s", runID)
			}
		}
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "upload: interrupted")
		}
	}

	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Position < res.Failed[j].Position })

	zap.L().Info("upload: complete",
		zap.String("run_id", runID),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// uploadOne creates the task, then attaches the phone number in a follow-up
// update. The task exists once creation succeeds, so a failed phone update
// is logged and the lead still counts as uploaded.
func (u *Uploader) uploadOne(ctx context.Context, lead model.Lead) (*clickup.Task, error) {
	task, err := u.client.CreateTask(ctx, u.cfg.ListID, BuildTaskRequest(lead, u.cfg.Mapping))
	if err != nil {
		return nil, err
	}

	if lead.Phone != "" && u.cfg.Mapping.Phone != "" {
		fields := []clickup.CustomFieldValue{{ID: u.cfg.Mapping.Phone, Value: lead.Phone}}
		if err := u.client.UpdateTaskFields(ctx, task.ID, fields); err != nil {
			zap.L().Warn("upload: phone update failed",
				zap.String("task_id", task.ID),
				zap.String("lead", lead.FullName),
				zap.Error(err),
			)
		}
	}
	return task, nil
}

// BuildTaskRequest assembles the create-task payload for a lead. The phone
// number is left out: ClickUp rejects phone custom fields on creation, so it
// rides the follow-up update instead.
func BuildTaskRequest(lead model.Lead, mapping clickup.FieldMapping) clickup.TaskRequest {
	source := lead.SourceLayout.Label()
	if lead.SourceLayout == model.LayoutGeneric && lead.SourceFile != "" {
		source = "Generic CSV: " + lead.SourceFile
	}

	lines := []string{"Lead from " + source}
	if lead.Title != "" {
		lines = append(lines, "Title: "+lead.Title)
	}

	tags := []string{
		strings.ReplaceAll(lead.SourceLayout.Label(), " ", "_"),
		strings.ToLower(OpportunityType(lead.Title)),
	}

	var fields []clickup.CustomFieldValue
	if lead.Company != "" && mapping.Company != "" {
		fields = append(fields, clickup.CustomFieldValue{ID: mapping.Company, Value: lead.Company})
	}
	if lead.Email != "" && mapping.Email != "" {
		fields = append(fields, clickup.CustomFieldValue{ID: mapping.Email, Value: lead.Email})
	}
	if mapping.EstimatedValue != "" {
		fields = append(fields, clickup.CustomFieldValue{
			ID:    mapping.EstimatedValue,
			Value: int(lead.EstimatedValue.IntPart()),
		})
	}

	return clickup.TaskRequest{
		Name:         lead.FullName,
		Description:  strings.Join(lines, "\n"),
		Assignees:    []int{},
		Tags:         tags,
		Status:       "new",
		Priority:     3,
		NotifyAll:    false,
		CustomFields: fields,
	}
}

package store

import (
	"context"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// TaskLink records the remote task created for one lead of a run.
type TaskLink struct {
	Position int    `json:"position"`
	TaskID   string `json:"task_id"`
}

// Store defines the persistence interface for import runs and their leads.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, files []string) (*model.ImportRun, error)
	CompleteRun(ctx context.Context, runID string, summary *model.Summary) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.ImportRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error)

	// Leads
	SaveLeads(ctx context.Context, runID string, leads []model.Lead) error
	GetLeads(ctx context.Context, runID string) ([]model.Lead, error)

	// Upload bookkeeping
	SaveTaskLinks(ctx context.Context, runID string, links []TaskLink) error
	ListTaskLinks(ctx context.Context, runID string) (map[int]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

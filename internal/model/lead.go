package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Layout identifies which source file layout a lead was parsed from.
type Layout string

const (
	// LayoutArizona is the Arizona commercial real estate broker export.
	LayoutArizona Layout = "arizona"
	// LayoutExecutive is the executive contact list (CTO/CIO research export).
	LayoutExecutive Layout = "executive"
	// LayoutCRMExport is the HubSpot-style CRM contact export.
	LayoutCRMExport Layout = "crm_export"
	// LayoutGeneric is the fuzzy-matched fallback for unrecognized headers.
	LayoutGeneric Layout = "generic"
)

// Label returns the human-readable source name for a layout, used in task
// descriptions and tags.
func (l Layout) Label() string {
	switch l {
	case LayoutArizona:
		return "Arizona Commercial Real Estate"
	case LayoutExecutive:
		return "Executive Lead List"
	case LayoutCRMExport:
		return "CRM Export"
	default:
		return "Generic CSV"
	}
}

// Lead is a single normalized sales lead.
type Lead struct {
	FullName       string           `json:"full_name"`
	Company        string           `json:"company"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Title          string           `json:"title,omitempty"`
	SourceLayout   Layout           `json:"source_layout"`
	SourceFile     string           `json:"source_file"`
	EstimatedValue decimal.Decimal  `json:"estimated_value"`
	AnnualRevenue  *decimal.Decimal `json:"annual_revenue,omitempty"`
}

// Valid reports whether the lead is worth keeping: a non-empty name plus at
// least one contact channel.
func (l Lead) Valid() bool {
	return l.FullName != "" && (l.Email != "" || l.Phone != "")
}

// RunStatus represents the current state of an import run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ImportRun records one processing run over a set of input files.
type ImportRun struct {
	ID        string    `json:"id"`
	Files     []string  `json:"files"`
	Status    RunStatus `json:"status"`
	Summary   *Summary  `json:"summary,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary holds aggregate counts for a completed run.
type Summary struct {
	TotalRead   int           `json:"total_read"`  // data rows read across all files
	Mapped      int           `json:"mapped"`      // rows successfully mapped to leads
	Duplicates  int           `json:"duplicates"`  // leads merged into an earlier lead
	Invalid     int           `json:"invalid"`     // leads dropped for missing name/contact
	Final       int           `json:"final"`       // leads kept after dedupe and validation
	Files       []FileSummary `json:"files,omitempty"`
	FailedFiles []FileFailure `json:"failed_files,omitempty"`
}

// FileSummary is the per-file breakdown within a Summary.
type FileSummary struct {
	File   string `json:"file"`
	Layout Layout `json:"layout"`
	Read   int    `json:"read"`
	Mapped int    `json:"mapped"`
}

// FileFailure records an input file that could not be processed. A failed
// file is reported and skipped; it never aborts the run.
type FileFailure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

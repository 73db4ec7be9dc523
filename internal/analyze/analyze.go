// Package analyze inspects lead files before import. It reports how the
// header maps onto lead fields, per-field fill and format quality, and a
// completeness score for ranking files.
package analyze

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/layout"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
)

// emailShape is a lenient well-formedness check, not a deliverability check.
var emailShape = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const sampleSize = 5

// FieldStats holds quality counts for one mapped field.
type FieldStats struct {
	Column  string   // header column the field resolved to
	Total   int      // data rows in the file
	Filled  int      // rows with a non-blank value
	Unique  int      // distinct non-blank values
	Valid   int      // values passing the shape check (email and phone only)
	Samples []string // up to five distinct example values, in file order
}

// FillPct returns the percentage of rows carrying a value.
func (s *FieldStats) FillPct() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Filled) / float64(s.Total) * 100
}

// NullPct returns the percentage of rows with no value.
func (s *FieldStats) NullPct() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Total-s.Filled) / float64(s.Total) * 100
}

// ValidPct returns the share of filled values passing the shape check.
func (s *FieldStats) ValidPct() float64 {
	if s.Filled == 0 {
		return 0
	}
	return float64(s.Valid) / float64(s.Filled) * 100
}

// DuplicatePct returns the share of rows not contributing a distinct value.
func (s *FieldStats) DuplicatePct() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Total-s.Unique) / float64(s.Total) * 100
}

// Report is the analysis result for one file.
type Report struct {
	File            string
	Layout          model.Layout
	Rows            int
	Columns         []string
	Fields          map[Field]*FieldStats
	Recommendations []string
	Score           int // 0-10 completeness
}

// File analyzes a single lead file without importing it.
func File(path string) (*Report, error) {
	header, rows, err := pipeline.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "analyze: read %s", path)
	}

	mappings := identifyColumns(header)

	r := &Report{
		File:    filepath.Base(path),
		Layout:  layout.Detect(header),
		Rows:    len(rows),
		Columns: header,
		Fields:  make(map[Field]*FieldStats, len(mappings)),
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		if _, ok := colIdx[col]; !ok {
			colIdx[col] = i
		}
	}

	for _, field := range fieldOrder {
		col, ok := mappings[field]
		if !ok {
			continue
		}
		r.Fields[field] = columnStats(rows, colIdx[col], col, field)
	}

	r.Score = completenessScore(mappings, r.Fields)
	r.Recommendations = recommendations(r, mappings)
	return r, nil
}

// columnStats walks one column collecting fill, uniqueness, shape, and
// sample counts.
func columnStats(rows [][]string, idx int, col string, field Field) *FieldStats {
	stats := &FieldStats{Column: col, Total: len(rows)}
	seen := make(map[string]bool)

	for _, row := range rows {
		if idx >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[idx])
		if value == "" {
			continue
		}
		stats.Filled++
		if !seen[value] {
			seen[value] = true
			if len(stats.Samples) < sampleSize {
				stats.Samples = append(stats.Samples, value)
			}
		}

		switch field {
		case FieldEmail:
			if emailShape.MatchString(value) {
				stats.Valid++
			}
		case FieldPhone:
			if digitCount(value) >= 7 {
				stats.Valid++
			}
		}
	}
	stats.Unique = len(seen)
	return stats
}

// completenessScore grades a file 0-10: two points each for name and email
// columns, one each for company and phone, and one per mapped field that is
// under a quarter empty.
func completenessScore(mappings map[Field]string, fields map[Field]*FieldStats) int {
	score := 0
	if hasNameColumns(mappings) {
		score += 2
	}
	if _, ok := mappings[FieldEmail]; ok {
		score += 2
	}
	if _, ok := mappings[FieldCompany]; ok {
		score++
	}
	if _, ok := mappings[FieldPhone]; ok {
		score++
	}
	for _, stats := range fields {
		if stats.NullPct() < 25 {
			score++
		}
	}
	if score > 10 {
		score = 10
	}
	return score
}

func recommendations(r *Report, mappings map[Field]string) []string {
	var recs []string

	if !hasNameColumns(mappings) {
		recs = append(recs, "no name columns found; map the name fields manually")
	}
	if _, ok := mappings[FieldEmail]; !ok {
		recs = append(recs, "no email column found; leads without emails are less valuable")
	}
	if _, ok := mappings[FieldCompany]; !ok {
		recs = append(recs, "no company column found; consider adding company data")
	}
	if _, ok := mappings[FieldPhone]; !ok {
		recs = append(recs, "no phone column found; fewer ways to reach these leads")
	}

	for _, field := range fieldOrder {
		stats := r.Fields[field]
		if stats == nil {
			continue
		}
		switch {
		case stats.NullPct() > 75:
			recs = append(recs, fmt.Sprintf("%s is %.0f%% empty; major data quality issue", field, stats.NullPct()))
		case stats.NullPct() > 50:
			recs = append(recs, fmt.Sprintf("%s is %.0f%% empty; consider enrichment", field, stats.NullPct()))
		}
	}

	if stats := r.Fields[FieldEmail]; stats != nil && stats.Filled > 0 && stats.ValidPct() < 70 {
		recs = append(recs, fmt.Sprintf("only %.0f%% of emails are well-formed", stats.ValidPct()))
	}
	if stats := r.Fields[FieldPhone]; stats != nil && stats.Filled > 0 && stats.ValidPct() < 70 {
		recs = append(recs, fmt.Sprintf("only %.0f%% of phone values look dialable", stats.ValidPct()))
	}

	if r.Rows > 100 {
		if stats := r.Fields[FieldName]; stats != nil && stats.DuplicatePct() > 20 {
			recs = append(recs, fmt.Sprintf("high duplicate rate on names (%.0f%%); dedupe will trim this file", stats.DuplicatePct()))
		}
	}
	if r.Rows > 10000 {
		recs = append(recs, "large file; upload in batches")
	}
	return recs
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// DirectoryReport aggregates analysis across a directory of lead files.
type DirectoryReport struct {
	Reports   []*Report // ranked by score, then row count
	Failed    []model.FileFailure
	TotalRows int
}

// leadFileExts are the extensions Directory considers lead files.
var leadFileExts = map[string]bool{".csv": true, ".txt": true, ".xlsx": true}

// Directory analyzes every lead file directly under dir and ranks the
// readable ones by completeness. Unreadable files are reported, not fatal.
func Directory(dir string) (*DirectoryReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "analyze: read dir %s", dir)
	}

	report := &DirectoryReport{}
	found := false
	for _, entry := range entries {
		if entry.IsDir() || !leadFileExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		found = true

		r, err := File(filepath.Join(dir, entry.Name()))
		if err != nil {
			report.Failed = append(report.Failed, model.FileFailure{File: entry.Name(), Reason: err.Error()})
			continue
		}
		report.Reports = append(report.Reports, r)
		report.TotalRows += r.Rows
	}
	if !found {
		return nil, eris.Errorf("analyze: no lead files in %s", dir)
	}

	sort.SliceStable(report.Reports, func(i, j int) bool {
		if report.Reports[i].Score != report.Reports[j].Score {
			return report.Reports[i].Score > report.Reports[j].Score
		}
		return report.Reports[i].Rows > report.Reports[j].Rows
	})
	return report, nil
}

//go:build !integration

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
)

func TestCollectInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.CSV", "leads.xlsx", "notes.md", "data.txt", "readme"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0755))

	files, err := collectInputFiles(dir)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "a.CSV"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "data.txt"),
		filepath.Join(dir, "leads.xlsx"),
	}
	assert.Equal(t, want, files)
}

func TestCollectInputFilesMissingDir(t *testing.T) {
	_, err := collectInputFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestPrintDetection(t *testing.T) {
	dir := t.TempDir()
	csv := "First Name,Last Name,Email,Company Name\nJane,Doe,jane@acme.com,Acme\n"
	path := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))
	broken := filepath.Join(dir, "missing.csv")

	var buf bytes.Buffer
	require.NoError(t, printDetection(&buf, []string{path, broken}))

	output := buf.String()
	assert.Contains(t, output, "contacts.csv")
	assert.Contains(t, output, "crm_export")
	assert.Contains(t, output, "missing.csv")
	assert.Contains(t, output, "unreadable")
}

func TestFormatRunResult(t *testing.T) {
	res := &pipeline.Result{
		RunID: "run-1234",
		Leads: []model.Lead{
			{FullName: "Jane Doe", EstimatedValue: decimal.NewFromInt(10000)},
			{FullName: "Tom Boone", EstimatedValue: decimal.NewFromInt(5000)},
		},
		Summary: model.Summary{
			TotalRead:  10,
			Mapped:     8,
			Duplicates: 3,
			Invalid:    3,
			Final:      2,
			Files: []model.FileSummary{
				{File: "az.csv", Layout: model.LayoutArizona, Read: 10, Mapped: 8},
			},
			FailedFiles: []model.FileFailure{
				{File: "bad.xlsx", Reason: "no sheets"},
			},
		},
	}

	var buf bytes.Buffer
	formatRunResult(&buf, res, "out.csv")

	output := buf.String()
	assert.Contains(t, output, "run-1234")
	assert.Contains(t, output, "az.csv")
	assert.Contains(t, output, "arizona")
	assert.Contains(t, output, "bad.xlsx")
	assert.Contains(t, output, "no sheets")
	assert.Contains(t, output, "Total read:")
	assert.Contains(t, output, "Duplicates removed:")
	assert.Contains(t, output, "Final leads:")
	assert.Contains(t, output, "$15K")
	assert.Contains(t, output, "out.csv")
}

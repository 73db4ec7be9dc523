package pipeline

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile loads one input file and splits it into header and data rows.
func ReadFile(path string) (header []string, rows [][]string, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, nil, eris.Errorf("pipeline: %s: unsupported file type", filepath.Base(path))
	}
}

func readCSV(path string) ([]string, [][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: read file")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	// Older CRM exports arrive in Windows-1252.
	if !utf8.Valid(data) {
		decoded, decErr := charmap.Windows1252.NewDecoder().Bytes(data)
		if decErr != nil {
			return nil, nil, eris.Wrap(decErr, "pipeline: decode file")
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1 // allow variable fields

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: parse csv")
	}
	if len(records) == 0 {
		return nil, nil, eris.Errorf("pipeline: %s: empty file", filepath.Base(path))
	}
	return records[0], records[1:], nil
}

func readXLSX(path string) ([]string, [][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.Errorf("pipeline: %s: no sheets", filepath.Base(path))
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.Errorf("pipeline: %s: empty file", filepath.Base(path))
	}

	all := make([][]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		all[i] = cells
	}
	return all[0], all[1:], nil
}

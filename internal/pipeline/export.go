package pipeline

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// exportColumns defines the canonical lead CSV column order.
var exportColumns = []string{
	"full_name",
	"company",
	"email",
	"phone",
	"title",
	"source_layout",
	"source_file",
	"estimated_value",
	"annual_revenue",
}

// ExportCSV writes the final lead sequence as a CSV file.
func ExportCSV(leads []model.Lead, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(exportColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	for _, lead := range leads {
		if err := w.Write(buildLeadRow(lead)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	return nil
}

func buildLeadRow(l model.Lead) []string {
	revenue := ""
	if l.AnnualRevenue != nil {
		revenue = l.AnnualRevenue.String()
	}
	return []string{
		l.FullName,
		l.Company,
		l.Email,
		l.Phone,
		l.Title,
		string(l.SourceLayout),
		l.SourceFile,
		l.EstimatedValue.String(),
		revenue,
	}
}

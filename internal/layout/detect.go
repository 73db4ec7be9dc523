// Package layout classifies CSV headers against the known lead-list export
// schemas and maps raw records into leads.
package layout

import (
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// signatures lists the minimum header columns per layout, in detection
// priority order. Arizona and executive exports share one column family;
// the Arizona lists are phone-led and the executive lists email-led, so
// the phone column is what separates the two signatures.
var signatures = []struct {
	kind model.Layout
	cols []string
}{
	{model.LayoutArizona, []string{"Contact Full Name", "Company Name - Cleaned", "Contact Phone 1"}},
	{model.LayoutExecutive, []string{"Contact Full Name", "Company Name - Cleaned", "Email 1"}},
	{model.LayoutCRMExport, []string{"First Name", "Last Name", "Email"}},
}

// Detect classifies a header row against the known layout signatures.
// The first signature whose columns are all present wins; a header that
// satisfies none is generic. Detection runs once per file.
func Detect(header []string) model.Layout {
	for _, sig := range signatures {
		if hasAll(header, sig.cols) {
			return sig.kind
		}
	}
	return model.LayoutGeneric
}

func hasAll(header []string, names []string) bool {
	for _, name := range names {
		if !hasColumn(header, name) {
			return false
		}
	}
	return true
}

// hasColumn reports whether any header column contains name,
// case-insensitively.
func hasColumn(header []string, name string) bool {
	name = strings.ToLower(name)
	for _, col := range header {
		if strings.Contains(strings.ToLower(strings.TrimSpace(col)), name) {
			return true
		}
	}
	return false
}

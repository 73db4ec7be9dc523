package layout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
)

// Mapper extracts leads from the records of a single file. Column positions
// are resolved once from the header at construction and reused for every row.
type Mapper struct {
	kind   model.Layout
	file   string
	colIdx map[string]int
}

// NewMapper builds a mapper for one file's header and detected layout.
func NewMapper(file string, header []string, kind model.Layout) *Mapper {
	m := &Mapper{kind: kind, file: file, colIdx: mapColumns(header)}
	if kind == model.LayoutGeneric {
		m.resolveAliases(header)
	}
	return m
}

// Map extracts a lead from one record. Email, phone, and company values pass
// through the normalizer before assignment. A record with no usable name is
// dropped, not an error; sparse rows are routine at volume.
func (m *Mapper) Map(record []string) (model.Lead, bool) {
	cols := columns[m.kind]
	lead := model.Lead{
		SourceLayout: m.kind,
		SourceFile:   m.file,
	}
	lead.FullName = m.first(record, cols.fullName)
	if lead.FullName == "" {
		lead.FullName = joinName(m.first(record, cols.firstName), m.first(record, cols.lastName))
	}
	if lead.FullName == "" {
		return model.Lead{}, false
	}
	lead.Title = m.first(record, cols.title)
	lead.Company = normalize.Company(m.first(record, cols.company))
	if email, ok := normalize.Email(m.first(record, cols.email)); ok {
		lead.Email = email
	}
	if phone, ok := normalize.Phone(m.first(record, cols.phone)); ok {
		lead.Phone = phone
	}
	lead.AnnualRevenue = parseRevenue(m.first(record, cols.revenue))
	return lead, true
}

// first returns the first non-empty value among the named columns.
func (m *Mapper) first(record []string, names []string) string {
	for _, name := range names {
		idx, ok := m.colIdx[normalizeCol(name)]
		if !ok || idx >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[idx]); v != "" {
			return v
		}
	}
	return ""
}

// resolveAliases points each generic alias at the first header column that
// contains it, so row extraction is the same map lookup as for known layouts.
// The bare alias "name" must match a column exactly; a substring match would
// let it claim columns like "Company Name" or "Last Name".
func (m *Mapper) resolveAliases(header []string) {
	cols := columns[model.LayoutGeneric]
	for _, aliases := range [][]string{
		cols.fullName, cols.firstName, cols.lastName, cols.title,
		cols.company, cols.email, cols.phone, cols.revenue,
	} {
		for _, alias := range aliases {
			for i, col := range header {
				c := normalizeCol(col)
				if c == alias || (alias != "name" && strings.Contains(c, alias)) {
					m.colIdx[alias] = i
					break
				}
			}
		}
	}
}

func normalizeCol(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mapColumns builds a normalized column name → position map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

// parseRevenue reads a currency-ish value ("$1,200,000") into a decimal.
// Unparseable values are absent, not errors.
func parseRevenue(raw string) *decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

package analyze

import "strings"

// Field names a lead attribute the analyzer looks for in a file's header.
type Field string

const (
	FieldName      Field = "name"
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldEmail     Field = "email"
	FieldPhone     Field = "phone"
	FieldCompany   Field = "company"
	FieldTitle     Field = "title"
	FieldRevenue   Field = "revenue"
)

// fieldOrder fixes the reporting order for mapped fields.
var fieldOrder = []Field{
	FieldName, FieldFirstName, FieldLastName,
	FieldEmail, FieldPhone, FieldCompany, FieldTitle, FieldRevenue,
}

// identifyColumns maps each known field to the header column that carries it.
// Column matching covers the named export schemas and the generic aliases in
// one pass; the first satisfying column wins for each field.
func identifyColumns(header []string) map[Field]string {
	mappings := make(map[Field]string)

	claim := func(f Field, col string) {
		if _, ok := mappings[f]; !ok {
			mappings[f] = col
		}
	}

	for _, col := range header {
		lower := strings.ToLower(strings.TrimSpace(col))

		switch {
		case strings.Contains(lower, "full name"),
			strings.Contains(lower, "contact name"),
			lower == "name":
			claim(FieldName, col)
		case strings.Contains(lower, "first name"):
			claim(FieldFirstName, col)
		case strings.Contains(lower, "last name"):
			claim(FieldLastName, col)

		case strings.Contains(lower, "email") && (strings.Contains(col, "1") || lower == "email"):
			claim(FieldEmail, col)

		case strings.Contains(lower, "contact phone") && strings.Contains(col, "1"),
			lower == "phone number", lower == "phone":
			claim(FieldPhone, col)

		case strings.Contains(lower, "company name") && strings.Contains(lower, "cleaned"),
			strings.Contains(lower, "associated company") && strings.Contains(lower, "primary"),
			lower == "company", lower == "business":
			claim(FieldCompany, col)

		case lower == "title", lower == "job title":
			claim(FieldTitle, col)

		case strings.Contains(lower, "annual revenue"), lower == "revenue":
			claim(FieldRevenue, col)
		}
	}
	return mappings
}

// hasNameColumns reports whether the mapping can produce a contact name,
// either from a single full-name column or a first/last pair.
func hasNameColumns(mappings map[Field]string) bool {
	if _, ok := mappings[FieldName]; ok {
		return true
	}
	_, first := mappings[FieldFirstName]
	_, last := mappings[FieldLastName]
	return first && last
}

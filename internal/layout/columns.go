package layout

import "github.com/sells-group/leadgen-cli/internal/model"

// columnSet names the candidate header columns for each logical lead field.
// Candidates are tried in order; the first present, non-empty column wins.
type columnSet struct {
	fullName  []string
	firstName []string
	lastName  []string
	title     []string
	company   []string
	email     []string
	phone     []string
	revenue   []string
}

// columns holds the fixed header schema for each known layout. Generic
// entries are lowercase aliases resolved by substring match against the
// actual header (see resolveAliases); named layouts use exact column names.
var columns = map[model.Layout]columnSet{
	model.LayoutArizona: {
		fullName:  []string{"Contact Full Name"},
		firstName: []string{"First Name"},
		lastName:  []string{"Last Name"},
		title:     []string{"Title"},
		company:   []string{"Company Name - Cleaned"},
		email:     []string{"Email 1", "Email 2"},
		phone:     []string{"Contact Phone 1", "Company Phone 1"},
		revenue:   []string{"Company Annual Revenue"},
	},
	model.LayoutExecutive: {
		fullName:  []string{"Contact Full Name"},
		firstName: []string{"First Name"},
		lastName:  []string{"Last Name"},
		title:     []string{"Title"},
		company:   []string{"Company Name - Cleaned"},
		email:     []string{"Email 1", "Email 2"},
		phone:     []string{"Contact Phone 1", "Company Phone 1"},
		revenue:   []string{"Company Annual Revenue"},
	},
	model.LayoutCRMExport: {
		firstName: []string{"First Name"},
		lastName:  []string{"Last Name"},
		title:     []string{"Job Title"},
		company:   []string{"Associated Company (Primary)"},
		email:     []string{"Email", "Email Address"},
		phone:     []string{"Phone Number"},
		revenue:   []string{"Annual Revenue"},
	},
	model.LayoutGeneric: {
		fullName:  []string{"full name", "name", "contact name"},
		firstName: []string{"first name"},
		lastName:  []string{"last name"},
		title:     []string{"title"},
		company:   []string{"company", "business"},
		email:     []string{"email"},
		phone:     []string{"phone"},
		revenue:   []string{"annual revenue", "revenue"},
	},
}

package analyze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func writeLeadFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIdentifyColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   map[Field]string
	}{
		{
			name: "arizona export",
			header: []string{
				"Contact Full Name", "First Name", "Last Name", "Title",
				"Company Name - Cleaned", "Email 1", "Email 2 (backup)",
				"Contact Phone 1", "Company Annual Revenue",
			},
			want: map[Field]string{
				FieldName:      "Contact Full Name",
				FieldFirstName: "First Name",
				FieldLastName:  "Last Name",
				FieldTitle:     "Title",
				FieldCompany:   "Company Name - Cleaned",
				FieldEmail:     "Email 1",
				FieldPhone:     "Contact Phone 1",
				FieldRevenue:   "Company Annual Revenue",
			},
		},
		{
			name:   "crm export",
			header: []string{"First Name", "Last Name", "Job Title", "Associated Company (Primary)", "Email", "Phone Number"},
			want: map[Field]string{
				FieldFirstName: "First Name",
				FieldLastName:  "Last Name",
				FieldTitle:     "Job Title",
				FieldCompany:   "Associated Company (Primary)",
				FieldEmail:     "Email",
				FieldPhone:     "Phone Number",
			},
		},
		{
			name:   "generic lowercase",
			header: []string{"name", "company", "email", "phone", "revenue"},
			want: map[Field]string{
				FieldName:    "name",
				FieldCompany: "company",
				FieldEmail:   "email",
				FieldPhone:   "phone",
				FieldRevenue: "revenue",
			},
		},
		{
			name:   "company name does not satisfy the bare name alias",
			header: []string{"Company Name"},
			want:   map[Field]string{},
		},
		{
			name:   "backup email column does not claim the field",
			header: []string{"Email 2 (backup)"},
			want:   map[Field]string{},
		},
		{
			name:   "nothing recognized",
			header: []string{"Widget Count", "Color"},
			want:   map[Field]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identifyColumns(tt.header))
		})
	}
}

func TestFileFullQuality(t *testing.T) {
	path := writeLeadFile(t, t.TempDir(), "arizona.csv",
		"Contact Full Name,Company Name - Cleaned,Email 1,Contact Phone 1,Title,Company Annual Revenue\n"+
			"Jane Doe,Acme Realty,jane@example.com,(888) 793-8193,Broker,2500000\n"+
			"John Roe,Beta Group,john@beta.com,555-010-4477,Agent,1000000\n")

	r, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, "arizona.csv", r.File)
	assert.Equal(t, model.LayoutArizona, r.Layout)
	assert.Equal(t, 2, r.Rows)
	assert.Len(t, r.Columns, 6)

	email := r.Fields[FieldEmail]
	require.NotNil(t, email)
	assert.Equal(t, "Email 1", email.Column)
	assert.Equal(t, 2, email.Filled)
	assert.Equal(t, 2, email.Valid)
	assert.Equal(t, 2, email.Unique)
	assert.Equal(t, []string{"jane@example.com", "john@beta.com"}, email.Samples)

	phone := r.Fields[FieldPhone]
	require.NotNil(t, phone)
	assert.Equal(t, 2, phone.Valid)

	// Every mapped field is fully filled, so the score caps at 10.
	assert.Equal(t, 10, r.Score)
	assert.Empty(t, r.Recommendations)
}

func TestFileSparse(t *testing.T) {
	path := writeLeadFile(t, t.TempDir(), "sparse.csv",
		"Contact Full Name,Email 1\n"+
			"Jane Doe,\n"+
			"John Roe,jr@example.com\n"+
			",\n")

	r, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Rows)
	assert.Equal(t, 4, r.Score) // name and email columns only, both too sparse for quality points

	email := r.Fields[FieldEmail]
	require.NotNil(t, email)
	assert.Equal(t, 1, email.Filled)
	assert.InDelta(t, 66.7, email.NullPct(), 0.1)

	joined := ""
	for _, rec := range r.Recommendations {
		joined += rec + "\n"
	}
	assert.Contains(t, joined, "no company column")
	assert.Contains(t, joined, "no phone column")
	assert.Contains(t, joined, "email is 67% empty")
}

func TestFileMalformedEmails(t *testing.T) {
	path := writeLeadFile(t, t.TempDir(), "emails.csv",
		"name,email,phone\n"+
			"A,jane@example.com,888-793-8193\n"+
			"B,not-an-email,n/a\n"+
			"C,a@b.co,call the office\n")

	r, err := File(path)
	require.NoError(t, err)

	email := r.Fields[FieldEmail]
	require.NotNil(t, email)
	assert.Equal(t, 3, email.Filled)
	assert.Equal(t, 2, email.Valid)

	phone := r.Fields[FieldPhone]
	require.NotNil(t, phone)
	assert.Equal(t, 1, phone.Valid)

	joined := ""
	for _, rec := range r.Recommendations {
		joined += rec + "\n"
	}
	assert.Contains(t, joined, "emails are well-formed")
	assert.Contains(t, joined, "phone values look dialable")
}

func TestFileUnreadable(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestFieldStatsZeroRows(t *testing.T) {
	stats := &FieldStats{Column: "Email 1"}
	assert.Zero(t, stats.FillPct())
	assert.Zero(t, stats.NullPct())
	assert.Zero(t, stats.ValidPct())
	assert.Zero(t, stats.DuplicatePct())
}

func TestDirectoryRanksByScore(t *testing.T) {
	dir := t.TempDir()

	writeLeadFile(t, dir, "rich.csv",
		"Contact Full Name,Company Name - Cleaned,Email 1,Contact Phone 1\n"+
			"Jane Doe,Acme,jane@example.com,888-793-8193\n")
	writeLeadFile(t, dir, "poor.csv",
		"name\n"+
			"Jane Doe\n"+
			"John Roe\n")
	writeLeadFile(t, dir, "broken.xlsx", "this is not a spreadsheet")
	writeLeadFile(t, dir, "notes.md", "ignore me")

	report, err := Directory(dir)
	require.NoError(t, err)

	require.Len(t, report.Reports, 2)
	assert.Equal(t, "rich.csv", report.Reports[0].File)
	assert.Equal(t, "poor.csv", report.Reports[1].File)
	assert.Greater(t, report.Reports[0].Score, report.Reports[1].Score)
	assert.Equal(t, 3, report.TotalRows)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, "broken.xlsx", report.Failed[0].File)
}

func TestDirectoryNoLeadFiles(t *testing.T) {
	dir := t.TempDir()
	writeLeadFile(t, dir, "notes.md", "nothing to see")

	_, err := Directory(dir)
	assert.ErrorContains(t, err, "no lead files")
}

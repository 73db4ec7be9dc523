package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/clickup"
)

type fakeClickUp struct {
	mu        sync.Mutex
	nextID    int
	created   []clickup.TaskRequest
	updates   map[string][]clickup.CustomFieldValue
	failNames map[string]bool
	failPhone bool
}

var _ clickup.Client = (*fakeClickUp)(nil)

func newFakeClickUp() *fakeClickUp {
	return &fakeClickUp{
		updates:   map[string][]clickup.CustomFieldValue{},
		failNames: map[string]bool{},
	}
}

func (f *fakeClickUp) AuthorizedUser(context.Context) (*clickup.User, error) {
	return &clickup.User{ID: 1, Username: "fake"}, nil
}

func (f *fakeClickUp) ListTeams(context.Context) ([]clickup.Team, error) { return nil, nil }

func (f *fakeClickUp) ListSpaces(context.Context, string) ([]clickup.Space, error) {
	return nil, nil
}

func (f *fakeClickUp) ListLists(context.Context, string) ([]clickup.List, error) {
	return nil, nil
}

func (f *fakeClickUp) ListFields(context.Context, string) ([]clickup.Field, error) {
	return nil, nil
}

func (f *fakeClickUp) CreateTask(_ context.Context, listID string, req clickup.TaskRequest) (*clickup.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNames[req.Name] {
		return nil, eris.Errorf("clickup: status 500: server error")
	}
	f.nextID++
	f.created = append(f.created, req)
	return &clickup.Task{ID: fmt.Sprintf("task_%d", f.nextID), Name: req.Name}, nil
}

func (f *fakeClickUp) UpdateTaskFields(_ context.Context, taskID string, fields []clickup.CustomFieldValue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPhone {
		return eris.Errorf("clickup: status 400: field rejected")
	}
	f.updates[taskID] = fields
	return nil
}

func (f *fakeClickUp) createdNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.created))
	for _, req := range f.created {
		names = append(names, req.Name)
	}
	return names
}

// countingStore tracks how often task links are checkpointed.
type countingStore struct {
	store.Store
	mu    sync.Mutex
	saves int
}

func (c *countingStore) SaveTaskLinks(ctx context.Context, runID string, links []store.TaskLink) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.Store.SaveTaskLinks(ctx, runID, links)
}

var testMapping = clickup.FieldMapping{
	Company:        "fld_company",
	Email:          "fld_email",
	Phone:          "fld_phone",
	EstimatedValue: "fld_value",
}

func seedRun(t *testing.T, leads []model.Lead) (store.Store, string) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	run, err := s.CreateRun(ctx, []string{"leads.csv"})
	require.NoError(t, err)
	require.NoError(t, s.SaveLeads(ctx, run.ID, leads))
	return s, run.ID
}

func sampleLeads() []model.Lead {
	return []model.Lead{
		{
			FullName:       "Jane Rivera",
			Company:        "Acme Holdings",
			Email:          "jane@acme.com",
			Phone:          "+1 602 555 0100",
			Title:          "CTO",
			SourceLayout:   model.LayoutExecutive,
			SourceFile:     "executives.csv",
			EstimatedValue: decimal.NewFromInt(12000),
		},
		{
			FullName:       "Tom Boone",
			Company:        "Boone Realty",
			Email:          "tom@boonerealty.com",
			Title:          "Owner",
			SourceLayout:   model.LayoutArizona,
			SourceFile:     "az.csv",
			EstimatedValue: decimal.NewFromInt(7500),
		},
		{
			FullName:       "Ana Ortiz",
			Company:        "Ortiz Group",
			Email:          "ana@ortizgroup.com",
			Phone:          "+1 480 555 0188",
			Title:          "VP of Sales",
			SourceLayout:   model.LayoutCRMExport,
			SourceFile:     "contacts.csv",
			EstimatedValue: decimal.NewFromInt(10000),
		},
	}
}

func TestRunUploadsAllLeads(t *testing.T) {
	st, runID := seedRun(t, sampleLeads())
	fake := newFakeClickUp()

	u := New(fake, st, Config{ListID: "list_1", Mapping: testMapping, Concurrency: 1})
	res, err := u.Run(context.Background(), runID)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Failed)

	require.Len(t, fake.created, 3)
	assert.Equal(t, []string{"Jane Rivera", "Tom Boone", "Ana Ortiz"}, fake.createdNames())

	// Jane and Ana have phones and get the follow-up update; Tom does not.
	require.Contains(t, fake.updates, "task_1")
	assert.Equal(t, []clickup.CustomFieldValue{{ID: "fld_phone", Value: "+1 602 555 0100"}}, fake.updates["task_1"])
	assert.NotContains(t, fake.updates, "task_2")
	require.Contains(t, fake.updates, "task_3")

	links, err := st.ListTaskLinks(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "task_1", 1: "task_2", 2: "task_3"}, links)
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	st, runID := seedRun(t, sampleLeads())
	fake := newFakeClickUp()
	fake.failNames["Tom Boone"] = true

	u := New(fake, st, Config{ListID: "list_1", Mapping: testMapping, Concurrency: 1})
	res, err := u.Run(context.Background(), runID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Position)
	assert.Equal(t, "Tom Boone", res.Failed[0].Lead)
	assert.Contains(t, res.Failed[0].Reason, "status 500")

	links, err := st.ListTaskLinks(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
	assert.NotContains(t, links, 1)
}

func TestRunResumeSkipsUploadedPositions(t *testing.T) {
	st, runID := seedRun(t, sampleLeads())
	ctx := context.Background()
	require.NoError(t, st.SaveTaskLinks(ctx, runID, []store.TaskLink{{Position: 0, TaskID: "task_prev"}}))

	fake := newFakeClickUp()
	u := New(fake, st, Config{ListID: "list_1", Mapping: testMapping, Concurrency: 1, Resume: true})
	res, err := u.Run(ctx, runID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.NotContains(t, fake.createdNames(), "Jane Rivera")

	links, err := st.ListTaskLinks(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, links, 3)
	assert.Equal(t, "task_prev", links[0])
}

func TestRunLimitTruncates(t *testing.T) {
	st, runID := seedRun(t, sampleLeads())
	fake := newFakeClickUp()

	u := New(fake, st, Config{ListID: "list_1", Mapping: testMapping, Concurrency: 1, Limit: 2})
	res, err := u.Run(context.Background(), runID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.Equal(t, []string{"Jane Rivera", "Tom Boone"}, fake.createdNames())
}

func TestRunPhoneUpdateFailureStillCounts(t *testing.T) {
	st, runID := seedRun(t, sampleLeads())
	fake := newFakeClickUp()
	fake.failPhone = true

	u := New(fake, st, Config{ListID: "list_1", Mapping: testMapping, Concurrency: 1})
	res, err := u.Run(context.Background(), runID)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Created)
	assert.Empty(t, res.Failed)
	assert.Empty(t, fake.updates)
}

func TestRunCheckpointsEveryBatch(t *testing.T) {
	leads := make([]model.Lead, 5)
	for i := range leads {
		leads[i] = model.Lead{
			FullName:       fmt.Sprintf("Lead %d", i),
			Company:        "Acme",
			Email:          fmt.Sprintf("lead%d@acme.com", i),
			SourceLayout:   model.LayoutGeneric,
			SourceFile:     "leads.csv",
			EstimatedValue: decimal.NewFromInt(5000),
		}
	}
	st, runID := seedRun(t, leads)
	counting := &countingStore{Store: st}
	fake := newFakeClickUp()

	u := New(fake, counting, Config{ListID: "list_1", Mapping: testMapping, BatchSize: 2, Concurrency: 1})
	res, err := u.Run(context.Background(), runID)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Created)
	assert.Equal(t, 3, counting.saves)

	links, err := st.ListTaskLinks(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, links, 5)
}

func TestRunNoLeads(t *testing.T) {
	st, runID := seedRun(t, nil)
	fake := newFakeClickUp()

	u := New(fake, st, Config{ListID: "list_1", Mapping: testMapping})
	_, err := u.Run(context.Background(), runID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no leads")
}

func TestBuildTaskRequest(t *testing.T) {
	lead := sampleLeads()[0]
	req := BuildTaskRequest(lead, testMapping)

	assert.Equal(t, "Jane Rivera", req.Name)
	assert.Equal(t, "Lead from Executive Lead List\nTitle: CTO", req.Description)
	assert.Equal(t, []string{"Executive_Lead_List", "tech"}, req.Tags)
	assert.Equal(t, "new", req.Status)
	assert.Equal(t, 3, req.Priority)
	assert.False(t, req.NotifyAll)
	assert.Empty(t, req.Assignees)

	require.Len(t, req.CustomFields, 3)
	assert.Equal(t, clickup.CustomFieldValue{ID: "fld_company", Value: "Acme Holdings"}, req.CustomFields[0])
	assert.Equal(t, clickup.CustomFieldValue{ID: "fld_email", Value: "jane@acme.com"}, req.CustomFields[1])
	assert.Equal(t, clickup.CustomFieldValue{ID: "fld_value", Value: 12000}, req.CustomFields[2])

	// Phone never appears on the create payload.
	for _, f := range req.CustomFields {
		assert.NotEqual(t, "fld_phone", f.ID)
	}
}

func TestBuildTaskRequestGenericSource(t *testing.T) {
	lead := model.Lead{
		FullName:       "Pat Doe",
		Email:          "pat@doe.dev",
		SourceLayout:   model.LayoutGeneric,
		SourceFile:     "conference_badge_scans.csv",
		EstimatedValue: decimal.NewFromInt(5000),
	}
	req := BuildTaskRequest(lead, testMapping)

	assert.Equal(t, "Lead from Generic CSV: conference_badge_scans.csv", req.Description)
	assert.Equal(t, []string{"Generic_CSV", "general"}, req.Tags)
}

func TestBuildTaskRequestSkipsUnmappedFields(t *testing.T) {
	lead := sampleLeads()[0]
	req := BuildTaskRequest(lead, clickup.FieldMapping{EstimatedValue: "fld_value"})

	require.Len(t, req.CustomFields, 1)
	assert.Equal(t, "fld_value", req.CustomFields[0].ID)
}

func TestOpportunityType(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"CTO", "Tech"},
		{"Chief Technology Officer", "Tech"},
		{"IT Director", "Tech"},
		{"Software Engineer", "Tech"},
		{"CEO", "Executive"},
		{"Founder & President", "Executive"},
		{"Owner", "Executive"},
		{"VP of Sales", "Sales"},
		{"Marketing Manager", "Sales"},
		{"BD Representative", "Sales"},
		{"Broker", "General"},
		{"", "General"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, OpportunityType(tt.title))
		})
	}
}

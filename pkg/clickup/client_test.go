package clickup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// newTestClient builds a client pointed at a test server with throttling off
// and near-instant retry backoff.
func newTestClient(url string, opts ...Option) Client {
	base := []Option{
		WithBaseURL(url),
		WithRateLimit(0),
		WithRetryConfig(resilience.RetryConfig{
			MaxAttempts:    maxRetryAttempts,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2.0,
		}),
	}
	return NewClient("test-token", append(base, opts...)...)
}

func TestAuthorizedUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"user": {"id": 123, "username": "jane", "email": "jane@example.com"}}`))
	}))
	defer srv.Close()

	user, err := newTestClient(srv.URL).AuthorizedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 123, user.ID)
	assert.Equal(t, "jane", user.Username)
}

func TestListTeamsAndSpaces(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/team", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"teams": [{"id": "t1", "name": "Sells Group"}]}`))
	})
	mux.HandleFunc("/team/t1/space", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"spaces": [{"id": "s1", "name": "Sales"}, {"id": "s2", "name": "Ops", "private": true}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL)

	teams, err := client.ListTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Sells Group", teams[0].Name)

	spaces, err := client.ListSpaces(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	assert.True(t, spaces[1].Private)
}

func TestListLists_MergesFolderedAndFolderless(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/space/s1/folder", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"folders": [{"id": "f1", "name": "CRM"}]}`))
	})
	mux.HandleFunc("/folder/f1/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"lists": [{"id": "l1", "name": "Leads", "task_count": 40}, {"id": "l2", "name": "Deals"}]}`))
	})
	mux.HandleFunc("/space/s1/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"lists": [{"id": "l3", "name": "Inbox"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	lists, err := newTestClient(srv.URL).ListLists(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, []string{"l1", "l2", "l3"}, []string{lists[0].ID, lists[1].ID, lists[2].ID})
	assert.Equal(t, 40, lists[0].TaskCount)
}

func TestListFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list/l1/field", r.URL.Path)
		_, _ = w.Write([]byte(`{"fields": [{"id": "cf1", "name": "Company", "type": "short_text"}, {"id": "cf2", "name": "Phone Number", "type": "phone"}]}`))
	}))
	defer srv.Close()

	fields, err := newTestClient(srv.URL).ListFields(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "phone", fields[1].Type)
}

func TestCreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/list/l1/task", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req TaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane Doe", req.Name)
		assert.Equal(t, "new", req.Status)
		assert.Equal(t, 3, req.Priority)
		require.Len(t, req.CustomFields, 2)
		assert.Equal(t, "cf1", req.CustomFields[0].ID)

		_, _ = w.Write([]byte(`{"id": "task_1", "name": "Jane Doe", "url": "https://app.clickup.com/t/task_1"}`))
	}))
	defer srv.Close()

	task, err := newTestClient(srv.URL).CreateTask(context.Background(), "l1", TaskRequest{
		Name:     "Jane Doe",
		Status:   "new",
		Priority: 3,
		CustomFields: []CustomFieldValue{
			{ID: "cf1", Value: "Acme Realty"},
			{ID: "cf2", Value: "jane@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "task_1", task.ID)
}

func TestUpdateTaskFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/task/task_1", r.URL.Path)

		var payload struct {
			CustomFields []CustomFieldValue `json:"custom_fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.CustomFields, 1)
		assert.Equal(t, "+1 888 793 8193", payload.CustomFields[0].Value)

		_, _ = w.Write([]byte(`{"id": "task_1"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).UpdateTaskFields(context.Background(), "task_1", []CustomFieldValue{
		{ID: "cf_phone", Value: "+1 888 793 8193"},
	})
	require.NoError(t, err)
}

func TestCreateTask_RetriesTransient(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id": "task_1"}`))
	}))
	defer srv.Close()

	task, err := newTestClient(srv.URL).CreateTask(context.Background(), "l1", TaskRequest{Name: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "task_1", task.ID)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCreateTask_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateTask(context.Background(), "l1", TaskRequest{Name: "Jane"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(maxRetryAttempts), attempts.Load())
}

func TestCreateTask_NoRetryOn4xx(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"err": "Custom field value is invalid"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateTask(context.Background(), "l1", TaskRequest{Name: "Jane"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, WithCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	}))

	_, err := client.CreateTask(context.Background(), "l1", TaskRequest{Name: "Jane"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	// The breaker opened after the second failed attempt; the third retry
	// never reached the server.
	assert.Equal(t, int32(2), attempts.Load())
}

func TestCreateTask_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateTask(context.Background(), "l1", TaskRequest{Name: "Jane"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

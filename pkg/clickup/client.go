// Package clickup wraps the ClickUp v2 API for workspace discovery and task
// creation.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.clickup.com/api/v2"

	// maxRetryAttempts bounds retries on transient API failures.
	maxRetryAttempts = 3
)

// Client defines the ClickUp API operations used by the uploader.
type Client interface {
	// AuthorizedUser returns the account the token belongs to.
	AuthorizedUser(ctx context.Context) (*User, error)

	// Discovery walks workspace -> space -> list -> fields.
	ListTeams(ctx context.Context) ([]Team, error)
	ListSpaces(ctx context.Context, teamID string) ([]Space, error)
	ListLists(ctx context.Context, spaceID string) ([]List, error)
	ListFields(ctx context.Context, listID string) ([]Field, error)

	// CreateTask creates a task in the list.
	CreateTask(ctx context.Context, listID string, req TaskRequest) (*Task, error)

	// UpdateTaskFields sets custom fields on an existing task. Phone fields
	// are rejected at task creation, so the phone value rides this second
	// call.
	UpdateTaskFields(ctx context.Context, taskID string, fields []CustomFieldValue) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (2 req/s). A zero or
// negative rate disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetryConfig overrides the default retry behavior.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithCircuitBreaker overrides the default circuit breaker configuration.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *httpClient) {
		c.breaker = resilience.NewCircuitBreaker(cfg)
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewClient creates a ClickUp API client. Calls are throttled, retried on
// transient failures, and cut off by a circuit breaker when the API is down.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 2),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		retry: resilience.RetryConfig{
			MaxAttempts:    maxRetryAttempts,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.25,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) AuthorizedUser(ctx context.Context) (*User, error) {
	var resp userResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *httpClient) ListTeams(ctx context.Context) ([]Team, error) {
	var resp teamsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/team", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

func (c *httpClient) ListSpaces(ctx context.Context, teamID string) ([]Space, error) {
	var resp spacesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/team/"+teamID+"/space", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Spaces, nil
}

// ListLists returns every list in the space: lists inside each folder plus
// the folderless ones.
func (c *httpClient) ListLists(ctx context.Context, spaceID string) ([]List, error) {
	var folders foldersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/space/"+spaceID+"/folder", nil, &folders); err != nil {
		return nil, err
	}

	var all []List
	for _, folder := range folders.Folders {
		var lists listsResponse
		if err := c.doJSON(ctx, http.MethodGet, "/folder/"+folder.ID+"/list", nil, &lists); err != nil {
			return nil, err
		}
		all = append(all, lists.Lists...)
	}

	var folderless listsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/space/"+spaceID+"/list", nil, &folderless); err != nil {
		return nil, err
	}
	all = append(all, folderless.Lists...)

	return all, nil
}

func (c *httpClient) ListFields(ctx context.Context, listID string) ([]Field, error) {
	var resp fieldsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/list/"+listID+"/field", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

func (c *httpClient) CreateTask(ctx context.Context, listID string, req TaskRequest) (*Task, error) {
	var task Task
	if err := c.doJSON(ctx, http.MethodPost, "/list/"+listID+"/task", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *httpClient) UpdateTaskFields(ctx context.Context, taskID string, fields []CustomFieldValue) error {
	payload := struct {
		CustomFields []CustomFieldValue `json:"custom_fields"`
	}{CustomFields: fields}
	return c.doJSON(ctx, http.MethodPut, "/task/"+taskID, payload, nil)
}

// doJSON performs one API call with rate limiting, retry on transient
// failures, and the circuit breaker around each attempt.
func (c *httpClient) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return eris.Wrap(err, "clickup: marshal request")
		}
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("clickup", fmt.Sprintf("%s %s", method, path))

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.roundTrip(ctx, method, path, body, out)
		})
	})
}

func (c *httpClient) roundTrip(ctx context.Context, method, path string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "clickup: rate limit")
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return eris.Wrap(err, "clickup: create request")
	}
	req.Header.Set("Authorization", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "clickup: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "clickup: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("clickup: status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "clickup: unmarshal response")
		}
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":      `INSERT INTO import_runs (id, files, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run":    `UPDATE import_runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":        `UPDATE import_runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":         `SELECT id, files, status, summary, error, created_at, updated_at FROM import_runs WHERE id = $1`,
	"get_leads":       `SELECT full_name, company, email, phone, title, source_layout, source_file, estimated_value, annual_revenue FROM leads WHERE run_id = $1 ORDER BY position`,
	"list_task_links": `SELECT position, task_id FROM clickup_tasks WHERE run_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS import_runs (
	id         TEXT PRIMARY KEY,
	files      JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	run_id          TEXT NOT NULL REFERENCES import_runs(id),
	position        INTEGER NOT NULL,
	full_name       TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	email           TEXT,
	phone           TEXT,
	title           TEXT,
	source_layout   TEXT NOT NULL,
	source_file     TEXT NOT NULL,
	estimated_value TEXT NOT NULL,
	annual_revenue  TEXT,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS clickup_tasks (
	run_id   TEXT NOT NULL REFERENCES import_runs(id),
	position INTEGER NOT NULL,
	task_id  TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_import_runs_status ON import_runs(status);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, files []string) (*model.ImportRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal files")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, files, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, filesJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.ImportRun{
		ID:        id,
		Files:     files,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE import_runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
		reason, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ImportRun, error) {
	var r model.ImportRun
	var filesJSON []byte
	var summaryJSON *[]byte
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, files, status, summary, error, created_at, updated_at FROM import_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &filesJSON, &r.Status, &summaryJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(filesJSON, &r.Files); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal files")
	}
	if summaryJSON != nil {
		r.Summary = &model.Summary{}
		if err := json.Unmarshal(*summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, files, status, summary, error, created_at, updated_at FROM import_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var r model.ImportRun
		var filesJSON []byte
		var summaryJSON *[]byte
		var errMsg *string

		if err := rows.Scan(&r.ID, &filesJSON, &r.Status, &summaryJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(filesJSON, &r.Files); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal files")
		}
		if summaryJSON != nil {
			r.Summary = &model.Summary{}
			if err := json.Unmarshal(*summaryJSON, r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// leadColumns is the COPY column order for SaveLeads.
var leadColumns = []string{
	"run_id", "position", "full_name", "company", "email", "phone", "title",
	"source_layout", "source_file", "estimated_value", "annual_revenue",
}

func (s *PostgresStore) SaveLeads(ctx context.Context, runID string, leads []model.Lead) error {
	// Re-saving a run replaces its leads.
	if _, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear leads for run %s", runID)
	}

	rows := make([][]any, len(leads))
	for i, lead := range leads {
		var revenue any
		if lead.AnnualRevenue != nil {
			revenue = lead.AnnualRevenue.String()
		}
		rows[i] = []any{
			runID, i, lead.FullName, lead.Company,
			textOrNil(lead.Email), textOrNil(lead.Phone), textOrNil(lead.Title),
			string(lead.SourceLayout), lead.SourceFile,
			lead.EstimatedValue.String(), revenue,
		}
	}

	if _, err := db.CopyInto(ctx, s.pool, "leads", leadColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: save leads for run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetLeads(ctx context.Context, runID string) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT full_name, company, email, phone, title, source_layout, source_file, estimated_value, annual_revenue
		 FROM leads WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get leads for run %s", runID)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var email, phone, title, revenue *string
		var value string

		if err := rows.Scan(&l.FullName, &l.Company, &email, &phone, &title, &l.SourceLayout, &l.SourceFile, &value, &revenue); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if email != nil {
			l.Email = *email
		}
		if phone != nil {
			l.Phone = *phone
		}
		if title != nil {
			l.Title = *title
		}
		l.EstimatedValue, err = decimal.NewFromString(value)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: parse estimated value")
		}
		if revenue != nil {
			rev, err := decimal.NewFromString(*revenue)
			if err != nil {
				return nil, eris.Wrap(err, "postgres: parse annual revenue")
			}
			l.AnnualRevenue = &rev
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: get leads iterate")
}

func (s *PostgresStore) SaveTaskLinks(ctx context.Context, runID string, links []TaskLink) error {
	rows := make([][]any, len(links))
	for i, link := range links {
		rows[i] = []any{runID, link.Position, link.TaskID}
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "clickup_tasks",
		Columns:      []string{"run_id", "position", "task_id"},
		ConflictKeys: []string{"run_id", "position"},
	}, rows)
	if err != nil {
		return eris.Wrapf(err, "postgres: save task links for run %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListTaskLinks(ctx context.Context, runID string) (map[int]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT position, task_id FROM clickup_tasks WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list task links for run %s", runID)
	}
	defer rows.Close()

	links := make(map[int]string)
	for rows.Next() {
		var pos int
		var taskID string
		if err := rows.Scan(&pos, &taskID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan task link")
		}
		links[pos] = taskID
	}
	return links, eris.Wrap(rows.Err(), "postgres: list task links iterate")
}

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

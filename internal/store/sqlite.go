package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS import_runs (
	id         TEXT PRIMARY KEY,
	files      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, files []string) (*model.ImportRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal files")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, files, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(filesJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.ImportRun{
		ID:        id,
		Files:     files,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		reason, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ImportRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, files, status, summary, error, created_at, updated_at FROM import_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, files, status, summary, error, created_at, updated_at FROM import_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveLeads(ctx context.Context, runID string, leads []model.Lead) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	// Re-saving a run replaces its leads.
	if _, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear leads for run %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (run_id, position, full_name, company, email, phone, title, source_layout, source_file, estimated_value, annual_revenue)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert lead")
	}
	defer stmt.Close()

	for i, lead := range leads {
		revenue := sql.NullString{}
		if lead.AnnualRevenue != nil {
			revenue = sql.NullString{String: lead.AnnualRevenue.String(), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			runID, i, lead.FullName, lead.Company,
			nullStr(lead.Email), nullStr(lead.Phone), nullStr(lead.Title),
			string(lead.SourceLayout), lead.SourceFile,
			lead.EstimatedValue.String(), revenue,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert lead %d for run %s", i, runID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit leads")
}

func (s *SQLiteStore) GetLeads(ctx context.Context, runID string) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_name, company, email, phone, title, source_layout, source_file, estimated_value, annual_revenue
		 FROM leads WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get leads for run %s", runID)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: get leads iterate")
}

func (s *SQLiteStore) SaveTaskLinks(ctx context.Context, runID string, links []TaskLink) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO clickup_tasks (run_id, position, task_id) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert task link")
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.ExecContext(ctx, runID, link.Position, link.TaskID); err != nil {
			return eris.Wrapf(err, "sqlite: insert task link %d for run %s", link.Position, runID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit task links")
}

func (s *SQLiteStore) ListTaskLinks(ctx context.Context, runID string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, task_id FROM clickup_tasks WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list task links for run %s", runID)
	}
	defer rows.Close()

	links := make(map[int]string)
	for rows.Next() {
		var pos int
		var taskID string
		if err := rows.Scan(&pos, &taskID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task link")
		}
		links[pos] = taskID
	}
	return links, eris.Wrap(rows.Err(), "sqlite: list task links iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.ImportRun, error) {
	var r model.ImportRun
	var filesJSON string
	var summaryJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &filesJSON, &r.Status, &summaryJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(filesJSON), &r.Files); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal files")
	}
	if summaryJSON.Valid {
		r.Summary = &model.Summary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	r.Error = errMsg.String
	return &r, nil
}

func scanLead(row scannable) (model.Lead, error) {
	var l model.Lead
	var email, phone, title, revenue sql.NullString
	var value string

	err := row.Scan(&l.FullName, &l.Company, &email, &phone, &title, &l.SourceLayout, &l.SourceFile, &value, &revenue)
	if err != nil {
		return model.Lead{}, eris.Wrap(err, "scan lead")
	}

	l.Email = email.String
	l.Phone = phone.String
	l.Title = title.String

	l.EstimatedValue, err = decimal.NewFromString(value)
	if err != nil {
		return model.Lead{}, eris.Wrap(err, "parse estimated value")
	}
	if revenue.Valid {
		rev, err := decimal.NewFromString(revenue.String)
		if err != nil {
			return model.Lead{}, eris.Wrap(err, "parse annual revenue")
		}
		l.AnnualRevenue = &rev
	}
	return l, nil
}

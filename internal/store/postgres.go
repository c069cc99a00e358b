package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/agb-search/agb-searcher/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// too, which is how the store is unit-tested.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                 BIGSERIAL PRIMARY KEY,
	name               TEXT NOT NULL UNIQUE,
	website            TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	equipment_purchased TEXT NOT NULL DEFAULT '',
	preferred_language TEXT NOT NULL DEFAULT 'ru',
	is_verified        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS equipment (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	description     TEXT NOT NULL DEFAULT '',
	companies_count INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_logs (
	id            BIGSERIAL PRIMARY KEY,
	search_type   TEXT NOT NULL,
	query         TEXT NOT NULL,
	results_count INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dialogs (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dialog_messages (
	id         BIGSERIAL PRIMARY KEY,
	dialog_id  BIGINT NOT NULL REFERENCES dialogs(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dialog_settings (
	id            BIGSERIAL PRIMARY KEY,
	dialog_id     BIGINT NOT NULL UNIQUE REFERENCES dialogs(id) ON DELETE CASCADE,
	system_prompt TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT 'gpt-4o',
	temperature   DOUBLE PRECISION NOT NULL DEFAULT 0.7,
	max_tokens    INTEGER NOT NULL DEFAULT 1000,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
CREATE INDEX IF NOT EXISTS idx_search_logs_created_at ON search_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_dialog_messages_dialog_id ON dialog_messages(dialog_id);
`

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const companyColumns = `id, name, website, email, address, phone, description, equipment_purchased, preferred_language, is_verified, created_at, updated_at`

func scanCompany(row pgx.Row) (*model.CompanyRecord, error) {
	var c model.CompanyRecord
	err := row.Scan(&c.ID, &c.Name, &c.Website, &c.Email, &c.Address, &c.Phone,
		&c.Description, &c.Equipment, &c.PreferredLanguage, &c.IsVerified,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCompany inserts a company or refreshes an existing row by name.
// Stored fields are only overwritten by non-empty new values, so a rerun
// with a weaker result never erases known data.
func (s *PostgresStore) UpsertCompany(ctx context.Context, record model.CompanyRecord) (*model.CompanyRecord, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO companies (name, website, email, address, phone, description, equipment_purchased, preferred_language)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (name) DO UPDATE SET
			website             = CASE WHEN EXCLUDED.website <> '' THEN EXCLUDED.website ELSE companies.website END,
			email               = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE companies.email END,
			address             = CASE WHEN EXCLUDED.address <> '' THEN EXCLUDED.address ELSE companies.address END,
			phone               = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE companies.phone END,
			description         = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE companies.description END,
			equipment_purchased = CASE WHEN EXCLUDED.equipment_purchased <> '' THEN EXCLUDED.equipment_purchased ELSE companies.equipment_purchased END,
			updated_at          = now()
		 RETURNING `+companyColumns,
		record.Name, record.Website, record.Email, record.Address, record.Phone,
		record.Description, record.Equipment, record.PreferredLanguage)

	saved, err := scanCompany(row)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert company")
	}
	return saved, nil
}

// GetCompany fetches a company by ID. Returns nil when absent.
func (s *PostgresStore) GetCompany(ctx context.Context, id int64) (*model.CompanyRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get company")
	}
	return c, nil
}

// GetCompanyByName fetches a company by exact name. Returns nil when absent.
func (s *PostgresStore) GetCompanyByName(ctx context.Context, name string) (*model.CompanyRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE name = $1`, name)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get company by name")
	}
	return c, nil
}

// ListCompanies returns companies ordered by creation time, newest first.
func (s *PostgresStore) ListCompanies(ctx context.Context, limit, offset int) ([]model.CompanyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

// UpdateCompany applies a partial update; nil fields are left untouched.
func (s *PostgresStore) UpdateCompany(ctx context.Context, id int64, update model.CompanyUpdate) (*model.CompanyRecord, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE companies SET
			website             = COALESCE($2, website),
			email               = COALESCE($3, email),
			address             = COALESCE($4, address),
			phone               = COALESCE($5, phone),
			description         = COALESCE($6, description),
			equipment_purchased = COALESCE($7, equipment_purchased),
			is_verified         = COALESCE($8, is_verified),
			updated_at          = now()
		 WHERE id = $1
		 RETURNING `+companyColumns,
		id, update.Website, update.Email, update.Address, update.Phone,
		update.Description, update.Equipment, update.IsVerified)

	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: update company")
	}
	return c, nil
}

// UpsertEquipment records an equipment search target and how many companies
// the latest search found.
func (s *PostgresStore) UpsertEquipment(ctx context.Context, name string, companiesFound int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO equipment (name, companies_count) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET companies_count = EXCLUDED.companies_count`,
		name, companiesFound)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert equipment")
	}
	return nil
}

// ListEquipment returns known equipment, newest first.
func (s *PostgresStore) ListEquipment(ctx context.Context, limit, offset int) ([]model.Equipment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, companies_count, created_at FROM equipment ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list equipment")
	}
	defer rows.Close()

	var items []model.Equipment
	for rows.Next() {
		var e model.Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.CompaniesCount, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan equipment")
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// LogSearch inserts a search log entry and returns its ID.
func (s *PostgresStore) LogSearch(ctx context.Context, searchType model.SearchType, query string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO search_logs (search_type, query) VALUES ($1, $2) RETURNING id`,
		string(searchType), query).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: log search")
	}
	return id, nil
}

// SetSearchResults records the outcome of a logged search.
func (s *PostgresStore) SetSearchResults(ctx context.Context, logID int64, resultsCount int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE search_logs SET results_count = $1 WHERE id = $2`, resultsCount, logID)
	if err != nil {
		return eris.Wrap(err, "postgres: set search results")
	}
	return nil
}

// ListSearchLogs returns search history, newest first.
func (s *PostgresStore) ListSearchLogs(ctx context.Context, limit, offset int) ([]model.SearchLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, search_type, query, results_count, created_at FROM search_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list search logs")
	}
	defer rows.Close()

	var logs []model.SearchLog
	for rows.Next() {
		var l model.SearchLog
		if err := rows.Scan(&l.ID, &l.SearchType, &l.Query, &l.ResultsCount, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search log")
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CreateDialog starts a new assistant dialog.
func (s *PostgresStore) CreateDialog(ctx context.Context, title string) (*model.Dialog, error) {
	var d model.Dialog
	err := s.pool.QueryRow(ctx,
		`INSERT INTO dialogs (title) VALUES ($1) RETURNING id, title, is_active, created_at, updated_at`,
		title).Scan(&d.ID, &d.Title, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create dialog")
	}
	return &d, nil
}

// GetDialog fetches a dialog by ID. Returns nil when absent.
func (s *PostgresStore) GetDialog(ctx context.Context, id int64) (*model.Dialog, error) {
	var d model.Dialog
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, is_active, created_at, updated_at FROM dialogs WHERE id = $1`, id).
		Scan(&d.ID, &d.Title, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get dialog")
	}
	return &d, nil
}

// ListDialogs returns active dialogs, newest first.
func (s *PostgresStore) ListDialogs(ctx context.Context) ([]model.Dialog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, is_active, created_at, updated_at FROM dialogs WHERE is_active ORDER BY updated_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dialogs")
	}
	defer rows.Close()

	var dialogs []model.Dialog
	for rows.Next() {
		var d model.Dialog
		if err := rows.Scan(&d.ID, &d.Title, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dialog")
		}
		dialogs = append(dialogs, d)
	}
	return dialogs, rows.Err()
}

// AddDialogMessage appends one message to a dialog.
func (s *PostgresStore) AddDialogMessage(ctx context.Context, dialogID int64, role model.MessageRole, content string) (*model.DialogMessage, error) {
	var m model.DialogMessage
	err := s.pool.QueryRow(ctx,
		`INSERT INTO dialog_messages (dialog_id, role, content) VALUES ($1, $2, $3)
		 RETURNING id, dialog_id, role, content, created_at`,
		dialogID, string(role), content).
		Scan(&m.ID, &m.DialogID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: add dialog message")
	}
	return &m, nil
}

// ListDialogMessages returns a dialog's messages in chronological order.
func (s *PostgresStore) ListDialogMessages(ctx context.Context, dialogID int64) ([]model.DialogMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, dialog_id, role, content, created_at FROM dialog_messages WHERE dialog_id = $1 ORDER BY created_at, id`,
		dialogID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dialog messages")
	}
	defer rows.Close()

	var messages []model.DialogMessage
	for rows.Next() {
		var m model.DialogMessage
		if err := rows.Scan(&m.ID, &m.DialogID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dialog message")
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CompactDialog replaces everything older than the newest keepRecent
// messages with a single system summary message.
func (s *PostgresStore) CompactDialog(ctx context.Context, dialogID int64, summary string, keepRecent int) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM dialog_messages
		 WHERE dialog_id = $1 AND id NOT IN (
			SELECT id FROM dialog_messages WHERE dialog_id = $1 ORDER BY id DESC LIMIT $2
		 )`,
		dialogID, keepRecent)
	if err != nil {
		return eris.Wrap(err, "postgres: compact dialog delete")
	}

	// Dated one second before the oldest kept message so the summary sorts
	// first in the history.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO dialog_messages (dialog_id, role, content, created_at)
		 VALUES ($1, 'system', $2, (SELECT COALESCE(MIN(created_at), now()) - interval '1 second' FROM dialog_messages WHERE dialog_id = $1))`,
		dialogID, summary)
	if err != nil {
		return eris.Wrap(err, "postgres: compact dialog insert summary")
	}
	return nil
}

// GetDialogSettings fetches per-dialog settings. Returns nil when unset.
func (s *PostgresStore) GetDialogSettings(ctx context.Context, dialogID int64) (*model.DialogSettings, error) {
	var st model.DialogSettings
	err := s.pool.QueryRow(ctx,
		`SELECT id, dialog_id, system_prompt, model, temperature, max_tokens, created_at, updated_at
		 FROM dialog_settings WHERE dialog_id = $1`, dialogID).
		Scan(&st.ID, &st.DialogID, &st.SystemPrompt, &st.Model, &st.Temperature, &st.MaxTokens, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get dialog settings")
	}
	return &st, nil
}

// UpsertDialogSettings creates or updates per-dialog settings.
func (s *PostgresStore) UpsertDialogSettings(ctx context.Context, settings model.DialogSettings) (*model.DialogSettings, error) {
	settings.ClampSettings()
	var st model.DialogSettings
	err := s.pool.QueryRow(ctx,
		`INSERT INTO dialog_settings (dialog_id, system_prompt, model, temperature, max_tokens)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (dialog_id) DO UPDATE SET
			system_prompt = EXCLUDED.system_prompt,
			model         = EXCLUDED.model,
			temperature   = EXCLUDED.temperature,
			max_tokens    = EXCLUDED.max_tokens,
			updated_at    = now()
		 RETURNING id, dialog_id, system_prompt, model, temperature, max_tokens, created_at, updated_at`,
		settings.DialogID, settings.SystemPrompt, settings.Model, settings.Temperature, settings.MaxTokens).
		Scan(&st.ID, &st.DialogID, &st.SystemPrompt, &st.Model, &st.Temperature, &st.MaxTokens, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert dialog settings")
	}
	return &st, nil
}

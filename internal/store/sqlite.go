package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/agb-search/agb-searcher/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the default
// for single-node deployments and local development.
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
CREATE TABLE IF NOT EXISTS companies (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	name                TEXT NOT NULL UNIQUE,
	website             TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	address             TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	equipment_purchased TEXT NOT NULL DEFAULT '',
	preferred_language  TEXT NOT NULL DEFAULT 'ru',
	is_verified         INTEGER NOT NULL DEFAULT 0,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS equipment (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL UNIQUE,
	description     TEXT NOT NULL DEFAULT '',
	companies_count INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS search_logs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	search_type   TEXT NOT NULL,
	query         TEXT NOT NULL,
	results_count INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dialogs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dialog_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	dialog_id  INTEGER NOT NULL REFERENCES dialogs(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dialog_settings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	dialog_id     INTEGER NOT NULL UNIQUE REFERENCES dialogs(id) ON DELETE CASCADE,
	system_prompt TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT 'gpt-4o',
	temperature   REAL NOT NULL DEFAULT 0.7,
	max_tokens    INTEGER NOT NULL DEFAULT 1000,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
CREATE INDEX IF NOT EXISTS idx_search_logs_created_at ON search_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_dialog_messages_dialog_id ON dialog_messages(dialog_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanCompanyRow(row interface{ Scan(...any) error }) (*model.CompanyRecord, error) {
	var c model.CompanyRecord
	err := row.Scan(&c.ID, &c.Name, &c.Website, &c.Email, &c.Address, &c.Phone,
		&c.Description, &c.Equipment, &c.PreferredLanguage, &c.IsVerified,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, record model.CompanyRecord) (*model.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO companies (name, website, email, address, phone, description, equipment_purchased, preferred_language)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
			website             = CASE WHEN excluded.website <> '' THEN excluded.website ELSE companies.website END,
			email               = CASE WHEN excluded.email <> '' THEN excluded.email ELSE companies.email END,
			address             = CASE WHEN excluded.address <> '' THEN excluded.address ELSE companies.address END,
			phone               = CASE WHEN excluded.phone <> '' THEN excluded.phone ELSE companies.phone END,
			description         = CASE WHEN excluded.description <> '' THEN excluded.description ELSE companies.description END,
			equipment_purchased = CASE WHEN excluded.equipment_purchased <> '' THEN excluded.equipment_purchased ELSE companies.equipment_purchased END,
			updated_at          = datetime('now')
		 RETURNING `+companyColumns,
		record.Name, record.Website, record.Email, record.Address, record.Phone,
		record.Description, record.Equipment, record.PreferredLanguage)

	saved, err := scanCompanyRow(row)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert company")
	}
	return saved, nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id int64) (*model.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	c, err := scanCompanyRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get company")
	}
	return c, nil
}

func (s *SQLiteStore) GetCompanyByName(ctx context.Context, name string) (*model.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE name = ?`, name)
	c, err := scanCompanyRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get company by name")
	}
	return c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, limit, offset int) ([]model.CompanyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		c, err := scanCompanyRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

func (s *SQLiteStore) UpdateCompany(ctx context.Context, id int64, update model.CompanyUpdate) (*model.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE companies SET
			website             = COALESCE(?, website),
			email               = COALESCE(?, email),
			address             = COALESCE(?, address),
			phone               = COALESCE(?, phone),
			description         = COALESCE(?, description),
			equipment_purchased = COALESCE(?, equipment_purchased),
			is_verified         = COALESCE(?, is_verified),
			updated_at          = datetime('now')
		 WHERE id = ?
		 RETURNING `+companyColumns,
		update.Website, update.Email, update.Address, update.Phone,
		update.Description, update.Equipment, update.IsVerified, id)

	c, err := scanCompanyRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: update company")
	}
	return c, nil
}

func (s *SQLiteStore) UpsertEquipment(ctx context.Context, name string, companiesFound int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO equipment (name, companies_count) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET companies_count = excluded.companies_count`,
		name, companiesFound)
	return eris.Wrap(err, "sqlite: upsert equipment")
}

func (s *SQLiteStore) ListEquipment(ctx context.Context, limit, offset int) ([]model.Equipment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, companies_count, created_at FROM equipment ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list equipment")
	}
	defer rows.Close()

	var items []model.Equipment
	for rows.Next() {
		var e model.Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.CompaniesCount, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan equipment")
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) LogSearch(ctx context.Context, searchType model.SearchType, query string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs (search_type, query) VALUES (?, ?)`,
		string(searchType), query)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: log search")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: log search id")
	}
	return id, nil
}

func (s *SQLiteStore) SetSearchResults(ctx context.Context, logID int64, resultsCount int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE search_logs SET results_count = ? WHERE id = ?`, resultsCount, logID)
	return eris.Wrap(err, "sqlite: set search results")
}

func (s *SQLiteStore) ListSearchLogs(ctx context.Context, limit, offset int) ([]model.SearchLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, search_type, query, results_count, created_at FROM search_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list search logs")
	}
	defer rows.Close()

	var logs []model.SearchLog
	for rows.Next() {
		var l model.SearchLog
		if err := rows.Scan(&l.ID, &l.SearchType, &l.Query, &l.ResultsCount, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search log")
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) CreateDialog(ctx context.Context, title string) (*model.Dialog, error) {
	var d model.Dialog
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO dialogs (title) VALUES (?) RETURNING id, title, is_active, created_at, updated_at`,
		title).Scan(&d.ID, &d.Title, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create dialog")
	}
	return &d, nil
}

func (s *SQLiteStore) GetDialog(ctx context.Context, id int64) (*model.Dialog, error) {
	var d model.Dialog
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, is_active, created_at, updated_at FROM dialogs WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get dialog")
	}
	return &d, nil
}

func (s *SQLiteStore) ListDialogs(ctx context.Context) ([]model.Dialog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, is_active, created_at, updated_at FROM dialogs WHERE is_active = 1 ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dialogs")
	}
	defer rows.Close()

	var dialogs []model.Dialog
	for rows.Next() {
		var d model.Dialog
		if err := rows.Scan(&d.ID, &d.Title, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dialog")
		}
		dialogs = append(dialogs, d)
	}
	return dialogs, rows.Err()
}

func (s *SQLiteStore) AddDialogMessage(ctx context.Context, dialogID int64, role model.MessageRole, content string) (*model.DialogMessage, error) {
	var m model.DialogMessage
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO dialog_messages (dialog_id, role, content) VALUES (?, ?, ?)
		 RETURNING id, dialog_id, role, content, created_at`,
		dialogID, string(role), content).
		Scan(&m.ID, &m.DialogID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: add dialog message")
	}
	return &m, nil
}

func (s *SQLiteStore) ListDialogMessages(ctx context.Context, dialogID int64) ([]model.DialogMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dialog_id, role, content, created_at FROM dialog_messages WHERE dialog_id = ? ORDER BY created_at, id`,
		dialogID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dialog messages")
	}
	defer rows.Close()

	var messages []model.DialogMessage
	for rows.Next() {
		var m model.DialogMessage
		if err := rows.Scan(&m.ID, &m.DialogID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dialog message")
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) CompactDialog(ctx context.Context, dialogID int64, summary string, keepRecent int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM dialog_messages
		 WHERE dialog_id = ? AND id NOT IN (
			SELECT id FROM dialog_messages WHERE dialog_id = ? ORDER BY id DESC LIMIT ?
		 )`,
		dialogID, dialogID, keepRecent)
	if err != nil {
		return eris.Wrap(err, "sqlite: compact dialog delete")
	}

	// Dated one second before the oldest kept message so the summary sorts
	// first in the history.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dialog_messages (dialog_id, role, content, created_at)
		 VALUES (?, 'system', ?, datetime((SELECT COALESCE(MIN(created_at), datetime('now')) FROM dialog_messages WHERE dialog_id = ?), '-1 second'))`,
		dialogID, summary, dialogID)
	return eris.Wrap(err, "sqlite: compact dialog insert summary")
}

func (s *SQLiteStore) GetDialogSettings(ctx context.Context, dialogID int64) (*model.DialogSettings, error) {
	var st model.DialogSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dialog_id, system_prompt, model, temperature, max_tokens, created_at, updated_at
		 FROM dialog_settings WHERE dialog_id = ?`, dialogID).
		Scan(&st.ID, &st.DialogID, &st.SystemPrompt, &st.Model, &st.Temperature, &st.MaxTokens, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get dialog settings")
	}
	return &st, nil
}

func (s *SQLiteStore) UpsertDialogSettings(ctx context.Context, settings model.DialogSettings) (*model.DialogSettings, error) {
	settings.ClampSettings()
	var st model.DialogSettings
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO dialog_settings (dialog_id, system_prompt, model, temperature, max_tokens)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (dialog_id) DO UPDATE SET
			system_prompt = excluded.system_prompt,
			model         = excluded.model,
			temperature   = excluded.temperature,
			max_tokens    = excluded.max_tokens,
			updated_at    = datetime('now')
		 RETURNING id, dialog_id, system_prompt, model, temperature, max_tokens, created_at, updated_at`,
		settings.DialogID, settings.SystemPrompt, settings.Model, settings.Temperature, settings.MaxTokens).
		Scan(&st.ID, &st.DialogID, &st.SystemPrompt, &st.Model, &st.Temperature, &st.MaxTokens, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert dialog settings")
	}
	return &st, nil
}

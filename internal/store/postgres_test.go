package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agb-search/agb-searcher/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func companyRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "website", "email", "address", "phone",
		"description", "equipment_purchased", "preferred_language",
		"is_verified", "created_at", "updated_at",
	})
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM companies WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetCompany(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompanyByName(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM companies WHERE name = \$1`).
		WithArgs("ООО Алмазгеобур").
		WillReturnRows(companyRows().AddRow(
			int64(1), "ООО Алмазгеобур", "https://almazgeobur.ru", "info@almazgeobur.ru",
			"", "+7 (495) 229-39-99", "Буровой инструмент", "", "ru",
			false, now, now,
		))

	got, err := s.GetCompanyByName(context.Background(), "ООО Алмазгеобур")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://almazgeobur.ru", got.Website)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO companies .+ ON CONFLICT \(name\) DO UPDATE SET`).
		WithArgs("ООО Алмазгеобур", "https://almazgeobur.ru", "info@almazgeobur.ru",
			"", "", "Буровой инструмент", "", "ru").
		WillReturnRows(companyRows().AddRow(
			int64(7), "ООО Алмазгеобур", "https://almazgeobur.ru", "info@almazgeobur.ru",
			"", "", "Буровой инструмент", "", "ru",
			false, now, now,
		))

	saved, err := s.UpsertCompany(context.Background(), model.CompanyRecord{
		Name:              "ООО Алмазгеобур",
		Website:           "https://almazgeobur.ru",
		Email:             "info@almazgeobur.ru",
		Description:       "Буровой инструмент",
		PreferredLanguage: "ru",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LogSearchAndUpdate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO search_logs \(search_type, query\) VALUES \(\$1, \$2\) RETURNING id`).
		WithArgs("equipment", "буровая установка").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := s.LogSearch(context.Background(), model.SearchTypeEquipment, "буровая установка")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	mock.ExpectExec(`UPDATE search_logs SET results_count = \$1 WHERE id = \$2`).
		WithArgs(5, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.SetSearchResults(context.Background(), 3, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertEquipment(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO equipment \(name, companies_count\)`).
		WithArgs("буровая установка УРБ-2А2", 4).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertEquipment(context.Background(), "буровая установка УРБ-2А2", 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDialogAndMessages(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO dialogs \(title\) VALUES \(\$1\) RETURNING`).
		WithArgs("Новый диалог").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), "Новый диалог", true, now, now))

	dialog, err := s.CreateDialog(context.Background(), "Новый диалог")
	require.NoError(t, err)
	assert.True(t, dialog.IsActive)

	mock.ExpectQuery(`INSERT INTO dialog_messages \(dialog_id, role, content\)`).
		WithArgs(int64(1), "user", "привет").
		WillReturnRows(pgxmock.NewRows([]string{"id", "dialog_id", "role", "content", "created_at"}).
			AddRow(int64(10), int64(1), "user", "привет", now))

	msg, err := s.AddDialogMessage(context.Background(), 1, model.RoleUser, "привет")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, msg.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDialogSettings_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM dialog_settings WHERE dialog_id = \$1`).
		WithArgs(int64(5)).
		WillReturnError(pgx.ErrNoRows)

	settings, err := s.GetDialogSettings(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, settings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompactDialog(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM dialog_messages`).
		WithArgs(int64(1), 6).
		WillReturnResult(pgxmock.NewResult("DELETE", 8))
	mock.ExpectExec(`INSERT INTO dialog_messages \(dialog_id, role, content, created_at\)`).
		WithArgs(int64(1), "Резюме").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CompactDialog(context.Background(), 1, "Резюме", 6))
	assert.NoError(t, mock.ExpectationsWereMet())
}

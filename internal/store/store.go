// Package store persists companies, equipment, search history and assistant
// dialogs. The lookup pipeline never touches the store; callers persist
// validated records through this interface.
package store

import (
	"context"

	"github.com/agb-search/agb-searcher/internal/model"
)

// Store defines the persistence interface for the application.
type Store interface {
	// Companies. Uniqueness by name is the store's responsibility:
	// UpsertCompany overwrites stored fields only with non-empty new values.
	UpsertCompany(ctx context.Context, record model.CompanyRecord) (*model.CompanyRecord, error)
	GetCompany(ctx context.Context, id int64) (*model.CompanyRecord, error)
	GetCompanyByName(ctx context.Context, name string) (*model.CompanyRecord, error)
	ListCompanies(ctx context.Context, limit, offset int) ([]model.CompanyRecord, error)
	UpdateCompany(ctx context.Context, id int64, update model.CompanyUpdate) (*model.CompanyRecord, error)

	// Equipment
	UpsertEquipment(ctx context.Context, name string, companiesFound int) error
	ListEquipment(ctx context.Context, limit, offset int) ([]model.Equipment, error)

	// Search history
	LogSearch(ctx context.Context, searchType model.SearchType, query string) (int64, error)
	SetSearchResults(ctx context.Context, logID int64, resultsCount int) error
	ListSearchLogs(ctx context.Context, limit, offset int) ([]model.SearchLog, error)

	// Dialogs
	CreateDialog(ctx context.Context, title string) (*model.Dialog, error)
	GetDialog(ctx context.Context, id int64) (*model.Dialog, error)
	ListDialogs(ctx context.Context) ([]model.Dialog, error)
	AddDialogMessage(ctx context.Context, dialogID int64, role model.MessageRole, content string) (*model.DialogMessage, error)
	ListDialogMessages(ctx context.Context, dialogID int64) ([]model.DialogMessage, error)
	// CompactDialog replaces all messages older than the newest keepRecent
	// ones with a single system summary message.
	CompactDialog(ctx context.Context, dialogID int64, summary string, keepRecent int) error
	GetDialogSettings(ctx context.Context, dialogID int64) (*model.DialogSettings, error)
	UpsertDialogSettings(ctx context.Context, settings model.DialogSettings) (*model.DialogSettings, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

package importer

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agb-search/agb-searcher/internal/model"
	"github.com/agb-search/agb-searcher/internal/store"
)

type fakeLookup struct {
	mu      sync.Mutex
	queried []string
	// names the lookup "finds" on the web; everything else is synthesized
	found map[string]bool
}

func (f *fakeLookup) SearchCompanyInfo(ctx context.Context, companyName string) model.CompanyRecord {
	f.mu.Lock()
	f.queried = append(f.queried, companyName)
	f.mu.Unlock()

	rec := model.CompanyRecord{
		Name:              companyName,
		Description:       "Компания " + companyName,
		PreferredLanguage: model.DefaultLanguage,
		Provenance:        model.ProvenanceSynthesized,
	}
	if f.found[companyName] {
		rec.Website = "https://example-site.ru"
		rec.Provenance = model.ProvenanceFound
	}
	return rec
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "importer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestImportReader_CSV(t *testing.T) {
	st := newTestStore(t)
	lookup := &fakeLookup{found: map[string]bool{"ООО Алмазгеобур": true}}
	im := New(st, lookup)

	csvData := "Название\nООО Алмазгеобур\nЗавод Буровых Установок\nООО Алмазгеобур\n\n"
	summary, err := im.ImportReader(context.Background(), strings.NewReader(csvData), "companies.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 0, summary.Skipped)
	assert.Len(t, summary.Companies, 2)
	assert.NotEmpty(t, summary.RunID)

	// duplicate and header rows never reach the pipeline
	assert.ElementsMatch(t, []string{"ООО Алмазгеобур", "Завод Буровых Установок"}, lookup.queried)

	saved, err := st.GetCompanyByName(context.Background(), "ООО Алмазгеобур")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "https://example-site.ru", saved.Website)
}

func TestImportReader_SkipsKnownCompanies(t *testing.T) {
	st := newTestStore(t)
	_, err := st.UpsertCompany(context.Background(), model.CompanyRecord{
		Name:        "ООО Алмазгеобур",
		Website:     "https://almazgeobur.ru",
		Description: "Уже в базе",
	})
	require.NoError(t, err)

	lookup := &fakeLookup{}
	im := New(st, lookup)

	csvData := "ООО Алмазгеобур\nНовая Компания\n"
	summary, err := im.ImportReader(context.Background(), strings.NewReader(csvData), "list.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{"Новая Компания"}, lookup.queried)
}

func TestImportReader_UnsupportedExtension(t *testing.T) {
	im := New(newTestStore(t), &fakeLookup{})
	_, err := im.ImportReader(context.Background(), strings.NewReader("data"), "companies.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadCSVNames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "header and blanks dropped",
			input: "name\nООО Ромашка\n\n  АО Вектор  \n",
			want:  []string{"ООО Ромашка", "АО Вектор"},
		},
		{
			name:  "russian header variants",
			input: "Компания\nнаименование\nООО Ромашка\n",
			want:  []string{"ООО Ромашка"},
		},
		{
			name:  "extra columns ignored",
			input: "ООО Ромашка,Москва,промышленность\nАО Вектор,СПб\n",
			want:  []string{"ООО Ромашка", "АО Вектор"},
		},
		{
			name:  "duplicates collapsed after trimming",
			input: "ООО Ромашка\n ООО Ромашка \n",
			want:  []string{"ООО Ромашка"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readCSVNames(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithMaxConcurrent(t *testing.T) {
	im := New(newTestStore(t), &fakeLookup{}, WithMaxConcurrent(8))
	assert.Equal(t, 8, im.maxConcurrent)

	im = New(newTestStore(t), &fakeLookup{}, WithMaxConcurrent(0))
	assert.Equal(t, defaultMaxConcurrent, im.maxConcurrent)
}

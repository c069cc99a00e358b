package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeSearch returns canned HTML per query and records calls.
type fakeSearch struct {
	pages   map[string]string
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", f.err
	}
	return f.pages[query], nil
}

const resultPage = `<html><body>
<div class="result">
  <a href="https://duckduckgo.com/l/?uddg=https%3A%2F%2Falmazgeobur.ru%2F">Алмазгеобур — буровой инструмент</a>
  <p>Контакты: info@almazgeobur.ru, +7 (495) 229-39-99</p>
</div>
<div class="result">
  <a href="https://www.rusprofile.ru/id/123456">ООО Алмазгеобур на Rusprofile</a>
</div>
<script>var tracking = "ignore.me";</script>
</body></html>`

func TestProbe_ExtractsEvidenceFromFirstQuery(t *testing.T) {
	search := &fakeSearch{pages: map[string]string{
		"Алмазгеобур официальный сайт": resultPage,
	}}
	probe := NewWebProbe(search)

	evidence := probe.Probe(context.Background(), "ООО Алмазгеобур")
	assert.Contains(t, evidence.Website, "almazgeobur.ru")
	assert.Equal(t, "info@almazgeobur.ru", evidence.Email)
	assert.Equal(t, "+7 (495) 229-39-99", evidence.Phone)

	// Early stop: the second query is never issued.
	assert.Equal(t, []string{"Алмазгеобур официальный сайт"}, search.queries)
}

func TestProbe_SecondQueryWhenFirstEmpty(t *testing.T) {
	search := &fakeSearch{pages: map[string]string{
		"Алмазгеобур официальный сайт": "<html><body>ничего не найдено</body></html>",
		"Алмазгеобур контакты":         resultPage,
	}}
	probe := NewWebProbe(search)

	evidence := probe.Probe(context.Background(), "ООО Алмазгеобур")
	assert.Contains(t, evidence.Website, "almazgeobur.ru")
	assert.Len(t, search.queries, 2)
}

func TestProbe_SearchFailureYieldsEmptyEvidence(t *testing.T) {
	search := &fakeSearch{err: errors.New("engine unavailable")}
	probe := NewWebProbe(search)

	evidence := probe.Probe(context.Background(), "ООО Алмазгеобур")
	assert.True(t, evidence.IsEmpty())
	// Both queries were attempted despite errors.
	assert.Len(t, search.queries, 2)
}

func TestProbe_EmptyNameSkipsSearch(t *testing.T) {
	search := &fakeSearch{}
	probe := NewWebProbe(search)

	evidence := probe.Probe(context.Background(), "ООО «»")
	assert.True(t, evidence.IsEmpty())
	assert.Empty(t, search.queries)
}

func TestPickWebsite_KeywordEchoWins(t *testing.T) {
	text := "generic-catalog.ru\nпоставщики\nalmazgeobur.ru\nдругое"
	assert.Equal(t, "https://almazgeobur.ru", pickWebsite(text, "almazgeobur"))
}

func TestPickWebsite_FallsBackToFirstUnexcluded(t *testing.T) {
	text := "www.rusprofile.ru\nhh.ru\nsupplier-catalog.ru"
	assert.Equal(t, "https://supplier-catalog.ru", pickWebsite(text, "almazgeobur"))
}

func TestPickWebsite_AllExcluded(t *testing.T) {
	text := "www.rusprofile.ru\nhh.ru\nvk.com"
	assert.Equal(t, "", pickWebsite(text, ""))
}

func TestPickEmail_RejectsPlaceholders(t *testing.T) {
	text := "Пишите на test@example.com или на sales@almazgeobur.ru"
	assert.Equal(t, "sales@almazgeobur.ru", pickEmail(text))
}

func TestPickPhone_RejectsPlaceholderDigits(t *testing.T) {
	text := "Тел: +7 (495) 123-45-67, реальный: +7 (495) 229-39-99"
	assert.Equal(t, "+7 (495) 229-39-99", pickPhone(text))
}

func TestResolveResultLink(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"uddg unwrapped", "https://duckduckgo.com/l/?uddg=https%3A%2F%2Falmazgeobur.ru%2F", "https://almazgeobur.ru/"},
		{"direct link kept", "https://almazgeobur.ru/contacts", "https://almazgeobur.ru/contacts"},
		{"relative dropped", "/html/?q=next", ""},
		{"garbage dropped", "://bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveResultLink(tt.href))
		})
	}
}

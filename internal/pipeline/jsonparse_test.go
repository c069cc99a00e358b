package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_StrictJSON(t *testing.T) {
	raw := `{"website": "https://almazgeobur.ru", "email": "info@almazgeobur.ru", "phone": "", "address": "", "description": "Буровой инструмент", "equipment": ""}`
	fields := ParseResponse(raw, "ООО Алмазгеобур")
	assert.Equal(t, "https://almazgeobur.ru", fields.Website)
	assert.Equal(t, "info@almazgeobur.ru", fields.Email)
	assert.Equal(t, "Буровой инструмент", fields.Description)
}

func TestParseResponse_JSONInsideProse(t *testing.T) {
	raw := "Вот информация о компании:\n" +
		`{"website": "https://almazgeobur.ru", "email": "info@almazgeobur.ru"}` +
		"\nНадеюсь, это поможет!"
	fields := ParseResponse(raw, "ООО Алмазгеобур")
	assert.Equal(t, "https://almazgeobur.ru", fields.Website)
}

func TestParseResponse_MarkdownFence(t *testing.T) {
	raw := "```json\n{\"website\": \"https://almazgeobur.ru\"}\n```"
	fields := ParseResponse(raw, "ООО Алмазгеобур")
	assert.Equal(t, "https://almazgeobur.ru", fields.Website)
}

func TestParseResponse_TrailingCommaRepaired(t *testing.T) {
	raw := `{"website": "https://almazgeobur.ru", "email": "info@almazgeobur.ru",}`
	fields := ParseResponse(raw, "ООО Алмазгеобур")
	assert.Equal(t, "https://almazgeobur.ru", fields.Website)
	assert.Equal(t, "info@almazgeobur.ru", fields.Email)
}

func TestParseResponse_SingleQuotesRepaired(t *testing.T) {
	raw := `{'website': 'https://almazgeobur.ru', 'email': 'info@almazgeobur.ru'}`
	fields := ParseResponse(raw, "ООО Алмазгеобур")
	assert.Equal(t, "https://almazgeobur.ru", fields.Website)
}

func TestParseResponse_UnparseableFallsBackToExtraction(t *testing.T) {
	raw := "Сайт компании https://almazgeobur.ru, почта info@almazgeobur.ru, других данных нет."
	fields := ParseResponse(raw, "ООО Алмазгеобур")
	assert.Equal(t, "https://almazgeobur.ru", fields.Website)
	assert.Equal(t, "info@almazgeobur.ru", fields.Email)
}

func TestParseCompanyList(t *testing.T) {
	raw := "Вот компании:\n" + `[
		{"name": "ООО Алмазгеобур", "website": "https://almazgeobur.ru"},
		{"name": "", "website": "https://noname.ru"},
		{"name": "АО Сибнефтемаш", "phone": "+7 (3452) 68-90-00"}
	]`
	companies := ParseCompanyList(raw)
	require.Len(t, companies, 3)
	assert.Equal(t, "ООО Алмазгеобур", companies[0].Name)
	assert.Equal(t, "https://almazgeobur.ru", companies[0].Fields.Website)
	assert.Empty(t, companies[1].Name)
	assert.Equal(t, "+7 (3452) 68-90-00", companies[2].Fields.Phone)
}

func TestParseCompanyList_NoArray(t *testing.T) {
	assert.Nil(t, ParseCompanyList("К сожалению, я не нашёл таких компаний."))
}

func TestSlicePayload(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"surrounded", `noise {"a": 1} more`, `{"a": 1}`},
		{"nested braces kept", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no object", "nothing here", ""},
		{"only open", "{unterminated", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slicePayload(tt.in, '{', '}'))
		})
	}
}

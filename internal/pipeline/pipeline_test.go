package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agb-search/agb-searcher/internal/model"
	"github.com/agb-search/agb-searcher/pkg/llm"
)

// scriptedLLM replays canned responses (or errors) in order, repeating the
// last entry once the script runs out.
type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

func (s *scriptedLLM) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	var prompt string
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	return s.Complete(ctx, llm.CompletionRequest{Model: req.Model, Prompt: prompt})
}

// staticProbe returns fixed evidence.
type staticProbe struct {
	evidence model.WebEvidence
}

func (p *staticProbe) Probe(context.Context, string) model.WebEvidence {
	return p.evidence
}

const goodResponse = `{"website": "https://almazgeobur.ru", "email": "info@almazgeobur.ru", "phone": "+7 (495) 229-39-99", "address": "г. Москва, ул. Гиляровского, д. 57", "description": "Поставщик бурового инструмента", "equipment": ""}`

func TestSearchCompanyInfo_HappyPath(t *testing.T) {
	client := &scriptedLLM{responses: []string{goodResponse}}
	orch := New(client, nil, Config{RetryCount: 1})

	record := orch.SearchCompanyInfo(context.Background(), "ООО Алмазгеобур")
	assert.Equal(t, model.ProvenanceFound, record.Provenance)
	assert.Equal(t, "https://almazgeobur.ru", record.Website)
	assert.Equal(t, "Поставщик бурового инструмента", record.Description)
	// No probe: phone is cleared by the merge policy, address always is.
	assert.Empty(t, record.Phone)
	assert.Empty(t, record.Address)
}

func TestSearchCompanyInfo_EvidenceWinsOverModelOutput(t *testing.T) {
	client := &scriptedLLM{responses: []string{goodResponse}}
	probe := &staticProbe{evidence: model.WebEvidence{
		Website: "https://agb.ru",
		Phone:   "+7 (812) 320-10-10",
	}}
	orch := New(client, probe, Config{RetryCount: 1})

	record := orch.SearchCompanyInfo(context.Background(), "ООО Алмазгеобур")
	assert.Equal(t, "https://agb.ru", record.Website)
	assert.Equal(t, "+7 (812) 320-10-10", record.Phone)
	// Model email kept: evidence had none and email is not a cleared field.
	assert.Equal(t, "info@almazgeobur.ru", record.Email)
}

func TestSearchCompanyInfo_WebAbsenceClearsPhone(t *testing.T) {
	client := &scriptedLLM{responses: []string{goodResponse}}
	probe := &staticProbe{evidence: model.WebEvidence{Website: "https://agb.ru"}}
	orch := New(client, probe, Config{RetryCount: 1})

	record := orch.SearchCompanyInfo(context.Background(), "ООО Алмазгеобур")
	// The probe found a website but no phone: the model's phone is dropped.
	assert.Empty(t, record.Phone)
}

func TestSearchCompanyInfo_RefusalRetriesSimplifiedPrompt(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"Извините, я не могу предоставить такую информацию.",
		goodResponse,
	}}
	orch := New(client, nil, Config{RetryCount: 1})

	record := orch.SearchCompanyInfo(context.Background(), "ООО Алмазгеобур")
	assert.Equal(t, model.ProvenanceFound, record.Provenance)
	require.Equal(t, 2, client.calls)
	// The second call used the simplified prompt, not the original.
	assert.NotEqual(t, client.prompts[0], client.prompts[1])
}

func TestSearchCompanyInfo_BlankNameReturnsNamedFallback(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"website": "", "description": ""}`}}
	probe := &staticProbe{}
	orch := New(client, probe, Config{RetryCount: 2})

	for _, input := range []string{"", "   ", "\t "} {
		record := orch.SearchCompanyInfo(context.Background(), input)
		assert.NotEmpty(t, record.Name, "input %q", input)
		assert.Equal(t, model.ProvenanceSynthesized, record.Provenance)
	}
	// Nothing to search for: the model is never consulted.
	assert.Equal(t, 0, client.calls)
}

func TestSearchCompanyInfo_TransientErrorsRetriedToSuccess(t *testing.T) {
	client := &scriptedLLM{
		responses: []string{"", "", goodResponse},
		errs: []error{
			&llm.APIError{Provider: "polza", StatusCode: 503, Message: "service unavailable"},
			&llm.APIError{Provider: "polza", StatusCode: 504, Message: "gateway timeout"},
			nil,
		},
	}
	orch := New(client, nil, Config{RetryCount: 3})

	record := orch.SearchCompanyInfo(context.Background(), "ООО Алмазгеобур")
	// Two transient upstream failures burn two attempts; the third succeeds,
	// so the result is a found record, not the synthesized fallback.
	assert.Equal(t, model.ProvenanceFound, record.Provenance)
	assert.Equal(t, "https://almazgeobur.ru", record.Website)
	assert.Equal(t, 3, client.calls)
}

func TestSearchCompanyInfo_PermanentModelErrorSynthesizesImmediately(t *testing.T) {
	client := &scriptedLLM{
		responses: []string{""},
		errs: []error{&llm.APIError{
			Provider:   "polza",
			StatusCode: 400,
			Message:    "unknown model: gpt-4o-turbo-preview",
		}},
	}
	orch := New(client, nil, Config{RetryCount: 3})

	record := orch.SearchCompanyInfo(context.Background(), "ООО Алмазгеобур")
	assert.Equal(t, model.ProvenanceSynthesized, record.Provenance)
	assert.Equal(t, "https://almazgeobur.ru", record.Website)
	// Permanent failure: no retries burned on a model-config error.
	assert.Equal(t, 1, client.calls)
}

func TestSearchCompanyInfo_EmptyResultsExhaustRetriesThenSynthesize(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"website": "", "description": ""}`}}
	orch := New(client, nil, Config{RetryCount: 2})

	record := orch.SearchCompanyInfo(context.Background(), "ООО Алмазгеобур")
	assert.Equal(t, model.ProvenanceSynthesized, record.Provenance)
	assert.Equal(t, 2, client.calls)
}

func TestSearchCompaniesByEquipment(t *testing.T) {
	client := &scriptedLLM{responses: []string{`[
		{"name": "ООО Алмазгеобур", "website": "https://almazgeobur.ru"},
		{"name": "", "website": "https://dropme.ru"},
		{"name": "АО Сибнефтемаш", "website": "https://sibneftemash.ru", "equipment": "УРБ-2А2 модернизированная"}
	]`}}
	orch := New(client, nil, Config{RetryCount: 1})

	records, err := orch.SearchCompaniesByEquipment(context.Background(), "буровая установка УРБ-2А2")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Query text backfills a missing equipment field.
	assert.Equal(t, "буровая установка УРБ-2А2", records[0].Equipment)
	assert.Equal(t, "УРБ-2А2 модернизированная", records[1].Equipment)
	for _, rec := range records {
		assert.Equal(t, model.ProvenanceFound, rec.Provenance)
	}
}

func TestSearchCompaniesByEquipment_EmptyListIsNotAnError(t *testing.T) {
	client := &scriptedLLM{responses: []string{`[]`}}
	orch := New(client, nil, Config{RetryCount: 1})

	records, err := orch.SearchCompaniesByEquipment(context.Background(), "несуществующее оборудование")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIsRefusal(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Извините, я не могу помочь с этим.", true},
		{"I'm sorry, I cannot provide that.", true},
		{"К сожалению, я не нашёл данных.", true},
		{goodResponse, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRefusal(tt.text), tt.text)
	}
}

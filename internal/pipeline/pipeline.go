// Package pipeline turns a company name into a validated CompanyRecord using
// web search evidence, an external completion model, heuristic parsing and
// fallback synthesis. The pipeline always succeeds: "nothing found" is a
// synthesized record, not an error.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
	"github.com/agb-search/agb-searcher/internal/resilience"
	"github.com/agb-search/agb-searcher/pkg/llm"
)

// Config holds orchestrator tuning. Zero values fall back to defaults.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	RetryCount  int
}

const (
	defaultRetryCount  = 3
	defaultMaxTokens   = 2000
	equipmentMaxTokens = 4000
	defaultTemperature = 0.3
)

// refusalMarkers flag responses where the model declined to answer instead
// of returning data.
var refusalMarkers = []string{
	"sorry", "can't", "cannot", "i am unable",
	"не могу", "извините", "к сожалению, я не",
}

// errNoUsableResult signals an attempt that produced no description and no
// website; the retry loop treats it like a transient failure.
var errNoUsableResult = errors.New("pipeline: no usable fields in response")

// Orchestrator drives the lookup pipeline end to end.
type Orchestrator struct {
	client llm.Client
	probe  Prober
	cfg    Config
}

// New creates an Orchestrator. probe may be nil to disable web enrichment.
func New(client llm.Client, probe Prober, cfg Config) *Orchestrator {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = defaultRetryCount
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	return &Orchestrator{client: client, probe: probe, cfg: cfg}
}

// SearchCompanyInfo looks up one company by name. It never returns an error:
// after the retry budget is exhausted, or on a non-retryable model failure,
// the synthesized fallback record is returned. Every returned record has
// passed validation regardless of path.
func (o *Orchestrator) SearchCompanyInfo(ctx context.Context, companyName string) model.CompanyRecord {
	name := model.NormalizeName(companyName)
	if name == "" {
		// Nothing searchable in the input: skip the probe and the model,
		// go straight to the terminal fallback record.
		zap.L().Warn("pipeline: blank company name, returning fallback record")
		return Synthesize(companyName)
	}
	start := time.Now()

	var evidence model.WebEvidence
	if o.probe != nil {
		evidence = o.probe.Probe(ctx, name)
	}

	prompt := buildLookupPrompt(name, evidence)

	record, err := resilience.DoVal(ctx, o.retryConfig("company lookup"), func(ctx context.Context) (model.CompanyRecord, error) {
		return o.attemptLookup(ctx, name, prompt, evidence)
	})
	if err != nil {
		zap.L().Warn("pipeline: lookup failed, synthesizing fallback",
			zap.String("company", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Synthesize(name)
	}

	zap.L().Info("pipeline: lookup complete",
		zap.String("company", name),
		zap.Bool("website_found", record.Website != ""),
		zap.Bool("email_found", record.Email != ""),
		zap.Duration("elapsed", time.Since(start)),
	)
	return record
}

// attemptLookup performs one model call, parse, merge and validation pass.
func (o *Orchestrator) attemptLookup(ctx context.Context, name, prompt string, evidence model.WebEvidence) (model.CompanyRecord, error) {
	text, err := o.complete(ctx, prompt, o.cfg.MaxTokens)
	if err != nil {
		return model.CompanyRecord{}, err
	}

	// A refusal is worth one immediate retry with a simpler prompt before
	// the attempt counts as failed.
	if isRefusal(text) {
		zap.L().Warn("pipeline: refusal-shaped response, retrying with simplified prompt",
			zap.String("company", name),
		)
		text, err = o.complete(ctx, buildSimplifiedPrompt(name), o.cfg.MaxTokens)
		if err != nil {
			return model.CompanyRecord{}, err
		}
		if isRefusal(text) {
			return model.CompanyRecord{}, resilience.NewTransientError(errors.New("pipeline: model refused both prompts"), 0)
		}
	}

	fields := ParseResponse(text, name)
	fields = mergeEvidence(fields, evidence)

	record := Validate(fields, name)
	if record.Description == "" && record.Website == "" {
		return model.CompanyRecord{}, resilience.NewTransientError(errNoUsableResult, 0)
	}
	record.Provenance = model.ProvenanceFound
	return record, nil
}

// SearchCompaniesByEquipment finds companies that bought or use the given
// equipment. Same call-parse-validate shape as the company lookup but
// without the web-evidence merge; elements missing a name are dropped. An
// empty slice is a valid outcome, not an error.
func (o *Orchestrator) SearchCompaniesByEquipment(ctx context.Context, equipmentName string) ([]model.CompanyRecord, error) {
	query := model.NormalizeName(equipmentName)
	prompt := buildEquipmentPrompt(query)

	companies, err := resilience.DoVal(ctx, o.retryConfig("equipment search"), func(ctx context.Context) ([]model.CompanyRecord, error) {
		text, err := o.complete(ctx, prompt, equipmentMaxTokens)
		if err != nil {
			return nil, err
		}

		parsed := ParseCompanyList(text)
		records := make([]model.CompanyRecord, 0, len(parsed))
		for _, item := range parsed {
			if item.Name == "" {
				continue
			}
			record := Validate(item.Fields, item.Name)
			if record.Equipment == "" {
				record.Equipment = query
			}
			record.Provenance = model.ProvenanceFound
			records = append(records, record)
		}
		return records, nil
	})
	if err != nil {
		zap.L().Warn("pipeline: equipment search failed",
			zap.String("equipment", query),
			zap.Error(err),
		)
		return nil, err
	}
	return companies, nil
}

// complete calls the model once and classifies the failure for the retry
// loop: transient HTTP statuses and empty payloads are retryable, a 400
// naming the model is not — a model-config error cannot be fixed by retrying.
func (o *Orchestrator) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	text, err := o.client.Complete(ctx, llm.CompletionRequest{
		Model:       o.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err == nil {
		return text, nil
	}

	if errors.Is(err, llm.ErrEmptyResponse) {
		return "", resilience.NewTransientError(err, 0)
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 400 && strings.Contains(strings.ToLower(apiErr.Message), "model") {
			return "", resilience.NewPermanentError(err)
		}
		if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return "", resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return "", resilience.NewPermanentError(err)
	}

	// Network-level errors keep their own transient classification.
	return "", err
}

func (o *Orchestrator) retryConfig(operation string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = o.cfg.RetryCount
	cfg.OnRetry = resilience.RetryLogger("llm", operation)
	return cfg
}

// mergeEvidence applies the precedence policy between web evidence and model
// output. Non-empty evidence always wins for its field. For the two
// high-risk contact fields, phone and address, web absence also wins: a
// value the probe could not corroborate is treated as fabricated and
// dropped. The probe never extracts addresses, so in this entry point a
// model-proposed address never survives the merge; addresses reach records
// only through the equipment search path and manual edits, both validated.
// Website, email, description and equipment are not subject to clearing.
func mergeEvidence(fields model.PartialFields, evidence model.WebEvidence) model.PartialFields {
	if evidence.Website != "" {
		fields.Website = evidence.Website
	}
	if evidence.Email != "" {
		fields.Email = evidence.Email
	}
	fields.Phone = evidence.Phone
	fields.Address = ""
	return fields
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range refusalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

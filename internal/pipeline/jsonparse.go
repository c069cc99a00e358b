package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
)

// rawCompany is the loose shape models return for a single company.
type rawCompany struct {
	Name        string `json:"name"`
	Website     string `json:"website"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	Equipment   string `json:"equipment"`
}

func (r rawCompany) partialFields() model.PartialFields {
	return model.PartialFields{
		Website:     r.Website,
		Email:       r.Email,
		Address:     r.Address,
		Phone:       r.Phone,
		Description: r.Description,
		Equipment:   r.Equipment,
	}
}

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	singleQuotedPattern  = regexp.MustCompile(`'([^'\\]*)'`)
)

// ParseResponse extracts company fields from a noisy model response. It
// tries strict JSON first, then one bounded repair pass, and finally hands
// the raw text to the free-text extractor. It never fails outward.
func ParseResponse(raw, companyName string) model.PartialFields {
	payload := slicePayload(raw, '{', '}')
	if payload != "" {
		var company rawCompany
		if err := decodeWithRepair(payload, &company); err == nil {
			return company.partialFields()
		}
		zap.L().Warn("pipeline: model response is not valid JSON, falling back to text extraction",
			zap.String("company", companyName),
		)
	}
	return Extract(raw, companyName)
}

// NamedFields is one element of a company-list response.
type NamedFields struct {
	Name   string
	Fields model.PartialFields
}

// ParseCompanyList extracts a JSON array of companies from a model response.
// Elements are returned as-is for per-element validation; a missing or
// unparseable array yields nil rather than an error.
func ParseCompanyList(raw string) []NamedFields {
	payload := slicePayload(raw, '[', ']')
	if payload == "" {
		return nil
	}

	var companies []rawCompany
	if err := decodeWithRepair(payload, &companies); err != nil {
		zap.L().Warn("pipeline: company list response is not valid JSON", zap.Error(err))
		return nil
	}

	out := make([]NamedFields, 0, len(companies))
	for _, c := range companies {
		out = append(out, NamedFields{
			Name:   model.NormalizeName(c.Name),
			Fields: c.partialFields(),
		})
	}
	return out
}

// slicePayload strips markdown code fences and cuts the text down to the
// first open/last close delimiter pair.
func slicePayload(text string, openCh, closeCh byte) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.IndexByte(text, openCh)
	end := strings.LastIndexByte(text, closeCh)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// decodeWithRepair attempts a strict decode, then retries once after a
// bounded repair pass: trailing commas removed, single-quoted keys/values
// converted to double-quoted.
func decodeWithRepair(payload string, v any) error {
	if err := json.Unmarshal([]byte(payload), v); err == nil {
		return nil
	}

	repaired := trailingCommaPattern.ReplaceAllString(payload, "$1")
	repaired = singleQuotedPattern.ReplaceAllString(repaired, `"$1"`)
	return json.Unmarshal([]byte(repaired), v)
}

package pipeline

import (
	"regexp"
	"strings"

	"github.com/agb-search/agb-searcher/internal/model"
)

// Website patterns, tried in order; first match wins.
var (
	websiteURLPattern     = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	websiteWWWPattern     = regexp.MustCompile(`\bwww\.[a-zA-Z0-9а-яА-Я.-]+\.[a-zA-Zрф]{2,}[^\s"'<>)\]]*`)
	websiteLabeledPattern = regexp.MustCompile(`(?i)(?:сайт|website)\s*[:\-]\s*([^\s,;]+)`)
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// Phone patterns in fixed priority order: generic international, Russia,
// US/Canada, UK, Germany, France.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+\d{1,3}[\s(-]*\d{3}[\s)-]*[\d\s-]{5,10}\d`),
	regexp.MustCompile(`\b8[\s(-]*\d{3}[\s)-]*\d{3}[\s-]?\d{2}[\s-]?\d{2}\b`),
	regexp.MustCompile(`\(\d{3}\)\s?\d{3}[\s-]?\d{4}`),
	regexp.MustCompile(`\b0\d{2,4}[\s-]?\d{6,8}\b`),
	regexp.MustCompile(`\b0\d{2,3}[\s/]?\d{7,8}\b`),
	regexp.MustCompile(`\b0\d[\s.]?\d{2}[\s.]?\d{2}[\s.]?\d{2}[\s.]?\d{2}\b`),
}

// Address patterns in fixed priority order: labeled, Russian city/street
// forms, Western street-suffix forms.
var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:адрес|address)\s*[:\-]\s*([^\n.;]{5,120})`),
	regexp.MustCompile(`(?:г\.|город)\s*[А-ЯЁ][а-яё-]+[^\n.;]{0,100}`),
	regexp.MustCompile(`(?:ул\.|улица|просп\.|проспект|пер\.|переулок|наб\.|шоссе)\s*[А-ЯЁ][^\n.;]{2,100}`),
	regexp.MustCompile(`\d{1,5}\s+[A-Z][A-Za-z\s]{2,40}(?:Street|St\.?|Avenue|Ave\.?|Road|Rd\.?|Boulevard|Blvd\.?|Drive|Dr\.?|Lane|Ln\.?)[^\n.;]{0,60}`),
}

var sentenceSplitPattern = regexp.MustCompile(`[.!?]\s+`)

// Extract pulls company fields out of unstructured free text. It is the last
// parsing stage before fallback synthesis: no errors, absent matches yield
// empty fields, and identical input always yields identical output.
func Extract(text, companyName string) model.PartialFields {
	return model.PartialFields{
		Website:     extractWebsite(text),
		Email:       emailPattern.FindString(text),
		Phone:       extractPhone(text),
		Address:     extractAddress(text),
		Description: extractDescription(text, companyName),
	}
}

func extractWebsite(text string) string {
	if m := websiteURLPattern.FindString(text); m != "" {
		return strings.TrimRight(m, ".,;")
	}
	if m := websiteWWWPattern.FindString(text); m != "" {
		return "https://" + strings.TrimRight(m, ".,;")
	}
	if m := websiteLabeledPattern.FindStringSubmatch(text); m != nil {
		site := strings.TrimRight(m[1], ".,;")
		if !strings.HasPrefix(site, "http") {
			site = "https://" + site
		}
		return site
	}
	return ""
}

func extractPhone(text string) string {
	for _, p := range phonePatterns {
		if m := p.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func extractAddress(text string) string {
	for i, p := range addressPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// Labeled pattern captures the value; the rest match whole.
		if i == 0 {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[0])
	}
	return ""
}

// extractDescription keeps sentences that mention the company or carry
// enough substance, joining the first three.
func extractDescription(text, companyName string) string {
	sentences := sentenceSplitPattern.Split(text, -1)
	nameLower := strings.ToLower(StripLegalForm(companyName))

	var kept []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if (nameLower != "" && strings.Contains(strings.ToLower(s), nameLower)) || len([]rune(s)) > 20 {
			kept = append(kept, strings.TrimRight(s, ".!?"))
		}
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ". ")
}

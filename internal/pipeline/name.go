package pipeline

import (
	"regexp"
	"strings"
)

// legalSuffixPattern matches trailing Western legal-entity suffixes.
var legalSuffixPattern = regexp.MustCompile(`(?i),?\s*(inc\.?|llc\.?|ltd\.?|co\.?|corp\.?|corporation|company|gmbh|s\.?a\.?|plc|llp|lp)$`)

// legalPrefixPattern matches leading Russian legal-entity forms. These come
// before the name ("ООО Алмазгеобур"), unlike the Western suffixes.
var legalPrefixPattern = regexp.MustCompile(`(?i)^\s*(ооо|зао|оао|пао|ао|ип|нпо|нпп|гк|тд|фгуп|муп)\s+`)

var quoteTrimmer = strings.NewReplacer(`«`, "", `»`, "", `"`, "", `'`, "", "„", "", "“", "", "”", "")

// StripLegalForm removes legal-entity prefixes/suffixes and surrounding
// quotes from a company name.
func StripLegalForm(name string) string {
	name = strings.TrimSpace(name)
	name = quoteTrimmer.Replace(name)
	name = legalPrefixPattern.ReplaceAllString(name, "")
	name = legalSuffixPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// nameKeyword derives a lowercase latin token from a company name, used to
// prefer candidate domains that echo the name. Cyrillic is transliterated and
// everything outside [a-z0-9] is dropped.
func nameKeyword(name string) string {
	stripped := strings.ToLower(StripLegalForm(name))
	var b strings.Builder
	for _, r := range stripped {
		if mapped, ok := translitTable[r]; ok {
			b.WriteString(mapped)
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

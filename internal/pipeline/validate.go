package pipeline

import (
	"regexp"
	"strings"

	"github.com/agb-search/agb-searcher/internal/model"
)

// addressPlaceholderWords reject textbook example addresses such as
// "ул. Примерная, д. 1".
var addressPlaceholderWords = []string{
	"примерная", "примерный", "test", "sample", "demo", "placeholder", "example",
}

// addressMarkers are locale tokens that make a short address plausible.
var addressMarkers = []string{
	// Russian
	"г.", "ул.", "д.", "просп", "пр-т", "пер.", "наб.", "шоссе", "область", "обл.",
	"москва", "мск", "спб", "санкт",
	// English
	"street", "st.", "avenue", "ave", "road", "rd.", "boulevard", "blvd", "suite", "drive",
	// German / French / Italian / Spanish
	"straße", "strasse", "platz", "rue", "via", "calle", "avenida",
	// Major Asian cities transliterated
	"beijing", "shanghai", "tokyo", "osaka", "пекин", "шанхай", "токио",
}

// phonePlaceholderDigits are digit sequences that only appear in examples.
var phonePlaceholderDigits = []string{
	"1234567", "0000000", "1111111", "12345", "00000", "11111",
	"4951234567", "74951234567", "84951234567",
}

// examplePhonePattern catches the canonical "+7 (495) 123-45-67" family in
// any punctuation variant.
var examplePhonePattern = regexp.MustCompile(`495\D*123\D*45\D*67`)

var nonDigit = regexp.MustCompile(`\D`)

// Validate sanitizes partial fields into a full CompanyRecord. Rejected
// values are emptied, never reported as errors: a hallucination-shaped field
// is indistinguishable from the field never being provided. Validation is
// idempotent — re-validating a validated record is a no-op.
func Validate(fields model.PartialFields, companyName string) model.CompanyRecord {
	record := model.CompanyRecord{
		Name:              model.NormalizeName(companyName),
		PreferredLanguage: model.DefaultLanguage,
	}

	if website := strings.TrimSpace(fields.Website); validWebsite(website) {
		record.Website = website
	}
	if email := strings.TrimSpace(fields.Email); validEmail(email) {
		record.Email = email
	}
	if address := strings.TrimSpace(fields.Address); validAddress(address) {
		record.Address = address
	}
	if phone := strings.TrimSpace(fields.Phone); validPhone(phone) {
		record.Phone = phone
	}
	record.Description = strings.TrimSpace(fields.Description)
	record.Equipment = strings.TrimSpace(fields.Equipment)

	return record
}

func validWebsite(website string) bool {
	return website != "" && strings.HasPrefix(website, "http") && strings.Contains(website, ".")
}

func validEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	domain := email[strings.Index(email, "@")+1:]
	return strings.Contains(domain, ".")
}

func validAddress(address string) bool {
	if address == "" {
		return false
	}
	lower := strings.ToLower(address)
	for _, word := range addressPlaceholderWords {
		if strings.Contains(lower, word) {
			return false
		}
	}
	for _, marker := range addressMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return len([]rune(address)) > 10
}

func validPhone(phone string) bool {
	if phone == "" {
		return false
	}
	lower := strings.ToLower(phone)
	if strings.Contains(lower, "xxx") {
		return false
	}

	digits := nonDigit.ReplaceAllString(phone, "")
	for _, p := range phonePlaceholderDigits {
		if digits == p {
			return false
		}
	}
	if examplePhonePattern.MatchString(digits) || examplePhonePattern.MatchString(phone) {
		return false
	}

	if len(digits) < 8 {
		return false
	}
	return strings.HasPrefix(phone, "+") || digits == phone
}

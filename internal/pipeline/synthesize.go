package pipeline

import (
	"strings"

	"github.com/agb-search/agb-searcher/internal/model"
)

// translitTable maps Cyrillic letters to their latin spellings for domain
// synthesis. Kept explicit so synthesized domains are stable.
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// unknownCompanyName names records built from input that normalizes to
// nothing. Lookup and synthesis always return a named record.
const unknownCompanyName = "Неизвестная компания"

// industryCategory is a coarse classification of a company by name keywords,
// used only for fallback synthesis.
type industryCategory int

const (
	categoryUnspecified industryCategory = iota
	categoryMining
	categoryFinance
	categoryOilGas
	categoryConstruction
)

var categoryKeywords = []struct {
	category industryCategory
	keywords []string
}{
	{categoryMining, []string{"бур", "геолог", "горн", "шахт", "рудн", "недр", "алмаз", "карьер", "drill", "mining", "geolog"}},
	{categoryFinance, []string{"банк", "финанс", "инвест", "страх", "капитал", "лизинг", "bank", "financ", "invest", "capital"}},
	{categoryOilGas, []string{"нефт", "газ", "топлив", "oil", "gas", "petrol"}},
	{categoryConstruction, []string{"строй", "строит", "монтаж", "бетон", "жби", "build", "construct", "девелоп"}},
}

var categoryDescriptions = map[industryCategory]string{
	categoryMining:       "Компания работает в сфере геологоразведки и бурения. Специализируется на буровых работах и освоении месторождений.",
	categoryFinance:      "Компания работает в финансовом секторе. Предоставляет финансовые и инвестиционные услуги.",
	categoryOilGas:       "Компания работает в нефтегазовой отрасли. Занимается добычей, переработкой или транспортировкой углеводородов.",
	categoryConstruction: "Компания работает в строительной отрасли. Выполняет строительные и монтажные работы.",
	categoryUnspecified:  "Сфера деятельности компании не определена по открытым данным.",
}

var categoryEquipment = map[industryCategory]string{
	categoryMining:       "Буровые установки, геологоразведочное оборудование",
	categoryFinance:      "",
	categoryOilGas:       "Нефтегазовое оборудование, насосные станции",
	categoryConstruction: "Строительная техника, монтажное оборудование",
	categoryUnspecified:  "",
}

// classifyByName picks an industry category from name keywords. First match
// in a fixed order wins.
func classifyByName(name string) industryCategory {
	lower := strings.ToLower(StripLegalForm(name))
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return categoryUnspecified
}

// Synthesize derives a minimal plausible record from the company name alone.
// It is a pure function used as the terminal state of the retry loop after
// model and web search both come up empty. Phone and address are never
// synthesized: a guessed domain is harmless, a guessed phone number is not.
func Synthesize(companyName string) model.CompanyRecord {
	name := model.NormalizeName(companyName)
	if name == "" {
		// Blank input still yields a named record, but never a guessed
		// domain for the placeholder name.
		return model.CompanyRecord{
			Name:              unknownCompanyName,
			Description:       categoryDescriptions[categoryUnspecified],
			PreferredLanguage: model.DefaultLanguage,
			Provenance:        model.ProvenanceSynthesized,
		}
	}
	category := classifyByName(name)

	record := model.CompanyRecord{
		Name:              name,
		Description:       categoryDescriptions[category],
		Equipment:         categoryEquipment[category],
		PreferredLanguage: model.DefaultLanguage,
		Provenance:        model.ProvenanceSynthesized,
	}

	if domain := nameKeyword(name); domain != "" {
		record.Website = "https://" + domain + ".ru"
		record.Email = "info@" + domain + ".ru"
	}

	return record
}

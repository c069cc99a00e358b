package pipeline

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
	"github.com/agb-search/agb-searcher/pkg/websearch"
)

// Prober finds web evidence for a company name.
type Prober interface {
	Probe(ctx context.Context, companyName string) model.WebEvidence
}

// excludedDomains are platforms, search engines and social networks that can
// never be a company's own website.
var excludedDomains = []string{
	"google.", "yandex.", "duckduckgo.", "bing.", "mail.ru", "rambler.",
	"wikipedia.org", "wikimedia.org",
	"vk.com", "ok.ru", "facebook.", "instagram.", "twitter.", "x.com",
	"youtube.", "linkedin.", "t.me", "telegram.",
	"hh.ru", "avito.ru", "2gis.", "rusprofile.ru", "list-org.com",
	"zachestnyibiznes.ru", "sbis.ru", "spark-interfax.ru", "checko.ru",
	"audit-it.ru", "kontur.ru", "egrul.", "nalog.ru", "gov.ru",
	"w3.org", "schema.org",
}

// emailPlaceholderWords reject synthetic addresses in search snippets.
var emailPlaceholderWords = []string{"example", "test", "sample", "placeholder"}

// phoneDigitPlaceholders are digit runs that mark a made-up number.
var phoneDigitPlaceholders = []string{"1234567", "0000000", "1111111"}

var (
	probeDomainPattern = regexp.MustCompile(`(?i)\b(?:[a-z0-9][a-z0-9-]*\.)+(?:ru|su|com|org|net|io|biz|info|pro|рф)\b`)
	probePhonePattern  = regexp.MustCompile(`(?:\+7|8)[\s(-]*\d{3}[\s)-]*\d{3}[\s-]*\d{2}[\s-]*\d{2}`)
)

// WebProbe queries an HTML search engine and scrapes result pages for
// candidate website, email and phone. It is best-effort enrichment: every
// failure degrades to empty evidence, never to an error.
type WebProbe struct {
	search websearch.Client
}

// NewWebProbe creates a probe over the given search client.
func NewWebProbe(search websearch.Client) *WebProbe {
	return &WebProbe{search: search}
}

// Probe issues two localized query variants and scans the returned HTML.
// It stops early once a website or email is found.
func (p *WebProbe) Probe(ctx context.Context, companyName string) model.WebEvidence {
	stripped := StripLegalForm(companyName)
	if stripped == "" {
		return model.WebEvidence{}
	}

	queries := []string{
		stripped + " официальный сайт",
		stripped + " контакты",
	}
	keyword := nameKeyword(companyName)

	var evidence model.WebEvidence
	for _, query := range queries {
		html, err := p.search.Search(ctx, query)
		if err != nil {
			zap.L().Warn("probe: search query failed",
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}

		scanResultHTML(html, keyword, &evidence)
		if evidence.Website != "" || evidence.Email != "" {
			break
		}
	}

	return evidence
}

// scanResultHTML fills empty evidence fields from one result page.
func scanResultHTML(html, keyword string, evidence *model.WebEvidence) {
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script,noscript,style").Each(func(_ int, s *goquery.Selection) {
			s.Remove()
		})
		var links []string
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if resolved := resolveResultLink(href); resolved != "" {
				links = append(links, resolved)
			}
		})
		text = strings.Join(links, "\n") + "\n" + doc.Text()
	} else {
		zap.L().Warn("probe: result page parse failed", zap.Error(err))
	}

	if evidence.Website == "" {
		evidence.Website = pickWebsite(text, keyword)
	}
	if evidence.Email == "" {
		evidence.Email = pickEmail(text)
	}
	if evidence.Phone == "" {
		evidence.Phone = pickPhone(text)
	}
}

// resolveResultLink unwraps search-engine redirect links (the uddg
// parameter) and drops in-engine navigation.
func resolveResultLink(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		return uddg
	}
	if parsed.Host == "" {
		return ""
	}
	return href
}

// pickWebsite chooses a candidate domain: excluded platforms are rejected
// and domains echoing the company name win over the first plausible one.
func pickWebsite(text, keyword string) string {
	matches := probeDomainPattern.FindAllString(text, 50)

	var first string
	for _, m := range matches {
		domain := strings.ToLower(strings.TrimPrefix(m, "www."))
		if isExcludedDomain(domain) {
			continue
		}
		if keyword != "" && strings.Contains(strings.ReplaceAll(domain, "-", ""), keyword) {
			return "https://" + domain
		}
		if first == "" {
			first = domain
		}
	}

	if first != "" {
		return "https://" + first
	}
	return ""
}

func isExcludedDomain(domain string) bool {
	for _, excluded := range excludedDomains {
		if strings.Contains(domain, excluded) {
			return true
		}
	}
	return false
}

func pickEmail(text string) string {
	for _, m := range emailPattern.FindAllString(text, 20) {
		lower := strings.ToLower(m)
		rejected := false
		for _, word := range emailPlaceholderWords {
			if strings.Contains(lower, word) {
				rejected = true
				break
			}
		}
		if !rejected {
			return m
		}
	}
	return ""
}

func pickPhone(text string) string {
	for _, m := range probePhonePattern.FindAllString(text, 20) {
		digits := nonDigit.ReplaceAllString(m, "")
		rejected := false
		for _, p := range phoneDigitPlaceholders {
			if strings.Contains(digits, p) {
				rejected = true
				break
			}
		}
		if !rejected {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

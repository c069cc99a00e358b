// Package model defines the data types shared across the lookup pipeline,
// the store, and the HTTP layer.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DefaultLanguage is the preferred language assigned to records when the
// caller does not specify one.
const DefaultLanguage = "ru"

// Provenance describes how a company record was produced.
type Provenance string

const (
	// ProvenanceFound marks a record built from model output and/or web
	// evidence that passed validation.
	ProvenanceFound Provenance = "found"
	// ProvenanceSynthesized marks a last-resort record derived from the
	// company name alone. Low confidence by definition.
	ProvenanceSynthesized Provenance = "synthesized"
)

// CompanyRecord is the validated output of one company lookup. Every field
// besides Name and PreferredLanguage is either empty or has passed the field
// validator; empty string means "unknown". The pipeline never mutates a
// record after returning it.
type CompanyRecord struct {
	ID                int64      `json:"id,omitempty" db:"id"`
	Name              string     `json:"name" db:"name"`
	Website           string     `json:"website" db:"website"`
	Email             string     `json:"email" db:"email"`
	Address           string     `json:"address" db:"address"`
	Phone             string     `json:"phone" db:"phone"`
	Description       string     `json:"description" db:"description"`
	Equipment         string     `json:"equipment" db:"equipment_purchased"`
	PreferredLanguage string     `json:"preferred_language" db:"preferred_language"`
	Provenance        Provenance `json:"provenance,omitempty" db:"-"`
	IsVerified        bool       `json:"is_verified" db:"is_verified"`
	CreatedAt         time.Time  `json:"created_at,omitzero" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at,omitzero" db:"updated_at"`
}

// PartialFields is the optional-field struct every extraction stage returns.
// Stages fill in what they can and leave the rest empty; merge and validation
// operate over this fixed set of keys.
type PartialFields struct {
	Website     string `json:"website"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	Equipment   string `json:"equipment"`
}

// IsEmpty reports whether no field was extracted.
func (p PartialFields) IsEmpty() bool {
	return p.Website == "" && p.Email == "" && p.Address == "" &&
		p.Phone == "" && p.Description == "" && p.Equipment == ""
}

// WebEvidence holds fields found by the web search probe. Evidence values
// take precedence over model output for the same field during merge. Address
// is deliberately absent: search result snippets are too unreliable for it.
type WebEvidence struct {
	Website string `json:"website"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// IsEmpty reports whether the probe found nothing.
func (w WebEvidence) IsEmpty() bool {
	return w.Website == "" && w.Email == "" && w.Phone == ""
}

// Equipment is a piece of equipment companies are searched by.
type Equipment struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	CompaniesCount int       `json:"companies_count" db:"companies_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// SearchType distinguishes search log entries.
type SearchType string

const (
	SearchTypeCompany   SearchType = "company"
	SearchTypeEquipment SearchType = "equipment"
)

// SearchLog records one search request for history views.
type SearchLog struct {
	ID           int64      `json:"id" db:"id"`
	SearchType   SearchType `json:"search_type" db:"search_type"`
	Query        string     `json:"query" db:"query"`
	ResultsCount int        `json:"results_count" db:"results_count"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// CompanyUpdate carries partial updates for an existing company. Nil pointers
// leave the stored value untouched.
type CompanyUpdate struct {
	Website     *string `json:"website,omitempty"`
	Email       *string `json:"email,omitempty"`
	Address     *string `json:"address,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Description *string `json:"description,omitempty"`
	Equipment   *string `json:"equipment_purchased,omitempty"`
	IsVerified  *bool   `json:"is_verified,omitempty"`
}

// NormalizeName trims a raw company name and canonicalizes its Unicode form
// so that visually identical names from different sources compare equal.
func NormalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}

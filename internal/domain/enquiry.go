package domain

import (
	"time"
)

// KeyPrefix namespaces enquiry records in the key/value store.
const KeyPrefix = "enquiry:"

// Key returns the store key for an enquiry id
func Key(id string) string {
	return KeyPrefix + id
}

// Kind identifies which intake funnel produced an enquiry
type Kind string

const (
	KindGeneric Kind = "generic"
	KindPackage Kind = "package"
	KindCustom  Kind = "custom"
)

// PackageType tags package and custom quote enquiries
type PackageType string

const (
	PackageTemplateOne PackageType = "template_one"
	PackageTemplateTwo PackageType = "template_two"
	PackageCustomQuote PackageType = "custom_quote"
)

// PackageTypes lists every accepted package type
var PackageTypes = []PackageType{PackageTemplateOne, PackageTemplateTwo, PackageCustomQuote}

// Valid reports whether p is one of the known package types
func (p PackageType) Valid() bool {
	for _, known := range PackageTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Record holds the fields every enquiry carries
type Record struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	PackageType PackageType `json:"packageType,omitempty"`
	Status      Status      `json:"status"`
	AgencyName  string      `json:"agencyName"`
	ContactName string      `json:"contactName"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Message     string      `json:"message"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

// AuditDetails belong to generic enquiries (website audit, contact form)
type AuditDetails struct {
	WebsiteURL string `json:"websiteUrl"`
}

// ProjectDetails are shared by package and custom quote enquiries
type ProjectDetails struct {
	Locations       string `json:"locations"`
	AreasServed     string `json:"areasServed"`
	DesiredDomain   string `json:"desiredDomain"`
	ExistingWebsite string `json:"existingWebsite"`
}

// TemplateDetails carry the customisation choices of a template package
type TemplateDetails struct {
	ThemeColor string `json:"themeColor"`
	Font       string `json:"font"`
	Price      string `json:"price"`
}

// QuoteDetails describe a bespoke project request
type QuoteDetails struct {
	Requirements string `json:"requirements"`
	BudgetRange  string `json:"budgetRange"`
	Timeline     string `json:"timeline"`
}

// Enquiry is a single inbound sales lead. It serialises to one flat JSON
// object; the detail blocks are nil unless the enquiry's kind owns them, so
// their keys are only present on the kinds they apply to.
type Enquiry struct {
	Record
	*AuditDetails
	*ProjectDetails
	*TemplateDetails
	*QuoteDetails
}

// Kind derives the enquiry kind from the detail blocks it carries
func (e *Enquiry) Kind() Kind {
	switch {
	case e.QuoteDetails != nil || e.PackageType == PackageCustomQuote:
		return KindCustom
	case e.TemplateDetails != nil:
		return KindPackage
	default:
		return KindGeneric
	}
}

// Touch stamps UpdatedAt strictly after CreatedAt. Timestamps have
// millisecond resolution, so a clash moves UpdatedAt one millisecond on.
func (e *Enquiry) Touch(now time.Time) {
	if !now.After(e.CreatedAt) {
		now = e.CreatedAt.Add(time.Millisecond)
	}
	e.UpdatedAt = &now
}

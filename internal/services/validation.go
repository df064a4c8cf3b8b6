package services

import (
	"strings"
	"unicode/utf8"

	goa "goa.design/goa/v3/pkg"

	"enquirydesk/internal/domain"
	apperrors "enquirydesk/pkg/errors"
)

const (
	emailPattern      = `^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`
	themeColorPattern = `^#[0-9A-Fa-f]{6}$`

	minContactNameLength  = 2
	minAgencyNameLength   = 2
	minPhoneLength        = 10
	minRequirementsLength = 20
)

// requiredFields lists the mandatory intake fields of each kind, in the
// order they are reported.
var requiredFields = map[domain.Kind][]string{
	domain.KindGeneric: {"type", "contactName", "email"},
	domain.KindPackage: {"type", "contactName", "email", "agencyName"},
	domain.KindCustom:  {"type", "contactName", "email", "agencyName", "requirements"},
}

// RequiredFields returns the mandatory fields for kind
func RequiredFields(kind domain.Kind) []string {
	return append([]string(nil), requiredFields[kind]...)
}

func isRequired(kind domain.Kind, field string) bool {
	for _, f := range requiredFields[kind] {
		if f == field {
			return true
		}
	}
	return false
}

// validator accumulates goa validation errors and the names of the fields
// that caused them.
type validator struct {
	err      error
	messages []string
	fields   []string
}

func (v *validator) add(field string, err error) {
	if err == nil {
		return
	}
	v.err = goa.MergeErrors(v.err, err)
	v.messages = append(v.messages, err.Error())
	for _, f := range v.fields {
		if f == field {
			return
		}
	}
	v.fields = append(v.fields, field)
}

func (v *validator) required(name, val string) {
	if val == "" {
		v.add(name, goa.MissingFieldError(name, "body"))
	}
}

func (v *validator) minLength(name, val string, min int) {
	if val == "" {
		return
	}
	if n := utf8.RuneCountInString(val); n < min {
		v.add(name, goa.InvalidLengthError(name, val, n, min, true))
	}
}

func (v *validator) pattern(name, val, pattern string) {
	if val == "" {
		return
	}
	v.add(name, goa.ValidatePattern(name, val, pattern))
}

func (v *validator) uri(name, val string) {
	if val == "" {
		return
	}
	v.add(name, goa.ValidateFormat(name, val, goa.FormatURI))
}

func (v *validator) font(name, val string) {
	if val == "" || domain.IsTemplateFont(val) {
		return
	}
	allowed := make([]any, len(domain.TemplateFonts))
	for i, f := range domain.TemplateFonts {
		allowed[i] = f
	}
	v.add(name, goa.InvalidEnumValueError(name, val, allowed))
}

func (v *validator) enum(name, val string, allowed ...string) {
	for _, a := range allowed {
		if val == a {
			return
		}
	}
	values := make([]any, len(allowed))
	for i, a := range allowed {
		values[i] = a
	}
	v.add(name, goa.InvalidEnumValueError(name, val, values))
}

func (v *validator) readOnly(name string, present bool) {
	if present {
		v.add(name, goa.PermanentError("read_only", "%q cannot be changed", name))
	}
}

func (v *validator) notApplicable(name string, present bool, kind domain.Kind) {
	if present {
		v.add(name, goa.PermanentError("invalid_field", "%q does not apply to %s enquiries", name, kind))
	}
}

// result returns a VALIDATION_ERROR naming every offending field, or nil
func (v *validator) result() error {
	if v.err == nil {
		return nil
	}
	appErr := apperrors.Validation(strings.Join(v.messages, "; "), v.fields...)
	appErr.Err = v.err
	return appErr
}

// contentRules applies the per-field checks shared by intake and update.
// Empty values pass; presence is checked separately.
func (v *validator) contentRules(f *fieldValues) {
	v.minLength("contactName", f.contactName, minContactNameLength)
	v.pattern("email", f.email, emailPattern)
	v.minLength("phone", f.phone, minPhoneLength)
	v.minLength("agencyName", f.agencyName, minAgencyNameLength)
	v.pattern("themeColor", f.themeColor, themeColorPattern)
	v.font("font", f.font)
	v.uri("existingWebsite", f.existingWebsite)
	v.minLength("requirements", f.requirements, minRequirementsLength)
}

// fieldValues is the flattened, trimmed view the content rules run on
type fieldValues struct {
	contactName     string
	email           string
	phone           string
	agencyName      string
	themeColor      string
	font            string
	existingWebsite string
	requirements    string
}

// validateSubmit checks an intake payload for kind. p must already be
// normalised.
func validateSubmit(kind domain.Kind, p *SubmitPayload) error {
	v := &validator{}

	values := map[string]string{
		"type":         p.Type,
		"contactName":  p.ContactName,
		"email":        p.Email,
		"agencyName":   p.AgencyName,
		"requirements": p.Requirements,
	}
	for _, name := range requiredFields[kind] {
		v.required(name, values[name])
	}

	f := &fieldValues{
		contactName: p.ContactName,
		email:       p.Email,
		phone:       p.Phone,
		agencyName:  p.AgencyName,
	}
	switch kind {
	case domain.KindPackage:
		f.themeColor = p.ThemeColor
		f.font = p.Font
		f.existingWebsite = p.ExistingWebsite
		if p.PackageType != "" {
			v.enum("packageType", p.PackageType, string(domain.PackageTemplateOne), string(domain.PackageTemplateTwo))
		}
	case domain.KindCustom:
		f.existingWebsite = p.ExistingWebsite
		f.requirements = p.Requirements
		if p.PackageType != "" {
			v.enum("packageType", p.PackageType, string(domain.PackageCustomQuote))
		}
	}
	v.contentRules(f)

	return v.result()
}

// validateUpdate checks a patch against the record it will be applied to.
// p must already be normalised.
func validateUpdate(e *domain.Enquiry, p *UpdatePayload) error {
	v := &validator{}
	kind := e.Kind()

	v.readOnly("id", p.ID != nil)
	v.readOnly("type", p.Type != nil)
	v.readOnly("packageType", p.PackageType != nil)
	v.readOnly("createdAt", p.CreatedAt != nil)
	v.readOnly("updatedAt", p.UpdatedAt != nil)

	if p.Status != nil {
		if _, ok := domain.ParseStatus(*p.Status); !ok {
			allowed := make([]string, len(domain.Statuses))
			for i, s := range domain.Statuses {
				allowed[i] = string(s)
			}
			v.enum("status", *p.Status, allowed...)
		}
	}

	hasProject := kind == domain.KindPackage || kind == domain.KindCustom
	v.notApplicable("websiteUrl", p.WebsiteURL != nil && kind != domain.KindGeneric, kind)
	v.notApplicable("locations", p.Locations != nil && !hasProject, kind)
	v.notApplicable("areasServed", p.AreasServed != nil && !hasProject, kind)
	v.notApplicable("desiredDomain", p.DesiredDomain != nil && !hasProject, kind)
	v.notApplicable("existingWebsite", p.ExistingWebsite != nil && !hasProject, kind)
	v.notApplicable("themeColor", p.ThemeColor != nil && kind != domain.KindPackage, kind)
	v.notApplicable("font", p.Font != nil && kind != domain.KindPackage, kind)
	v.notApplicable("price", p.Price != nil && kind != domain.KindPackage, kind)
	v.notApplicable("requirements", p.Requirements != nil && kind != domain.KindCustom, kind)
	v.notApplicable("budgetRange", p.BudgetRange != nil && kind != domain.KindCustom, kind)
	v.notApplicable("timeline", p.Timeline != nil && kind != domain.KindCustom, kind)

	supplied := []struct {
		name string
		val  *string
	}{
		{"contactName", p.ContactName},
		{"email", p.Email},
		{"agencyName", p.AgencyName},
		{"requirements", p.Requirements},
	}
	for _, s := range supplied {
		if s.val != nil && *s.val == "" && isRequired(kind, s.name) {
			v.add(s.name, goa.MissingFieldError(s.name, "body"))
		}
	}

	v.contentRules(&fieldValues{
		contactName:     deref(p.ContactName),
		email:           deref(p.Email),
		phone:           deref(p.Phone),
		agencyName:      deref(p.AgencyName),
		themeColor:      deref(p.ThemeColor),
		font:            deref(p.Font),
		existingWebsite: deref(p.ExistingWebsite),
		requirements:    deref(p.Requirements),
	})

	if v.err == nil && p.empty() {
		return apperrors.Validation("no updatable fields supplied")
	}
	return v.result()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

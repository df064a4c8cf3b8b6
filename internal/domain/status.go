package domain

import "strings"

// Status is the triage state of an enquiry. Any status may move to any
// other status; there is no transition graph.
type Status string

const (
	StatusNew       Status = "new"
	StatusInReview  Status = "in_review"
	StatusResponded Status = "responded"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusArchived  Status = "archived"
)

// Statuses lists every status in display order
var Statuses = []Status{
	StatusNew,
	StatusInReview,
	StatusResponded,
	StatusWon,
	StatusLost,
	StatusArchived,
}

// Valid reports whether s is one of the six statuses
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label renders the status for humans, e.g. "in review"
func (s Status) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// ParseStatus converts raw input into a Status
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// TemplateFonts is the curated list of fonts offered for template packages
var TemplateFonts = []string{
	"Inter",
	"Roboto",
	"Open Sans",
	"Lato",
	"Montserrat",
	"Playfair Display",
	"Merriweather",
	"Poppins",
	"Raleway",
	"Nunito",
	"Source Sans Pro",
	"Oswald",
	"PT Sans",
	"Ubuntu",
	"Manrope",
	"DM Sans",
	"Work Sans",
	"Crimson Text",
	"Libre Baskerville",
	"Cormorant Garamond",
}

// IsTemplateFont reports whether font is in the curated list
func IsTemplateFont(font string) bool {
	for _, f := range TemplateFonts {
		if f == font {
			return true
		}
	}
	return false
}

package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"enquirydesk/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderList prints the stats line and one row per enquiry
func RenderList(w io.Writer, page *Page) error {
	fmt.Fprintf(w, "Total: %d  New: %d  In review: %d  Won: %d\n",
		page.Stats.Total, page.Stats.New, page.Stats.InReview, page.Stats.Won)
	if page.Warning != "" {
		fmt.Fprintf(w, "Warning: %s\n", page.Warning)
	}
	if len(page.Enquiries) == 0 {
		_, err := fmt.Fprintln(w, "No enquiries found.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "CREATED\tSTATUS\tTYPE\tCONTACT\tEMAIL\tAGENCY\tID")
	for _, e := range page.Enquiries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(timeLayout),
			e.Status.Label(),
			typeLabel(e),
			orDash(e.ContactName),
			orDash(e.Email),
			orDash(e.AgencyName),
			e.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d of %d\n", len(page.Enquiries), page.Total)
	return err
}

// RenderEnquiry prints every populated field of e, kind-specific ones last
func RenderEnquiry(w io.Writer, e *domain.Enquiry) error {
	tw := newTable(w)
	row := func(label, value string) {
		fmt.Fprintf(tw, "%s:\t%s\n", label, orDash(value))
	}

	row("ID", e.ID)
	row("Type", typeLabel(e))
	row("Status", e.Status.Label())
	row("Contact", e.ContactName)
	row("Email", e.Email)
	row("Phone", e.Phone)
	row("Agency", e.AgencyName)
	row("Created", e.CreatedAt.Local().Format(timeLayout))
	if e.UpdatedAt != nil {
		row("Updated", e.UpdatedAt.Local().Format(timeLayout))
	}

	if a := e.AuditDetails; a != nil {
		row("Website", a.WebsiteURL)
	}
	if p := e.ProjectDetails; p != nil {
		row("Locations", p.Locations)
		row("Areas served", p.AreasServed)
		row("Desired domain", p.DesiredDomain)
		row("Existing website", p.ExistingWebsite)
	}
	if t := e.TemplateDetails; t != nil {
		row("Theme colour", t.ThemeColor)
		row("Font", t.Font)
		row("Price", t.Price)
	}
	if q := e.QuoteDetails; q != nil {
		row("Budget", q.BudgetRange)
		row("Timeline", q.Timeline)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if q := e.QuoteDetails; q != nil && q.Requirements != "" {
		fmt.Fprintf(w, "\nRequirements:\n%s\n", indent(q.Requirements))
	}
	if e.Message != "" {
		fmt.Fprintf(w, "\nMessage:\n%s\n", indent(e.Message))
	}
	return nil
}

// typeLabel shows the funnel label, with the package type when there is one
func typeLabel(e *domain.Enquiry) string {
	label := e.Type
	if label == "" {
		label = string(e.Kind())
	}
	if e.PackageType != "" && string(e.PackageType) != label {
		label += " (" + string(e.PackageType) + ")"
	}
	return label
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

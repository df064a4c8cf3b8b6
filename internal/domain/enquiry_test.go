package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnquiry_GenericJSONShape(t *testing.T) {
	e := &Enquiry{
		Record: Record{
			ID:          "4f9b2c1e-0000-4000-8000-000000000001",
			Type:        "Free Website Audit",
			Status:      StatusNew,
			ContactName: "Jane Doe",
			Email:       "jane@x.co.uk",
			CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		AuditDetails: &AuditDetails{},
	}

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "", fields["phone"])
	assert.Equal(t, "", fields["websiteUrl"])
	assert.Equal(t, "new", fields["status"])
	assert.NotContains(t, fields, "packageType")
	assert.NotContains(t, fields, "updatedAt")
	assert.NotContains(t, fields, "requirements")
	assert.NotContains(t, fields, "themeColor")
}

func TestEnquiry_DecodeRestoresKind(t *testing.T) {
	cases := []struct {
		name string
		blob string
		want Kind
	}{
		{"generic", `{"id":"a","type":"Free Website Audit","websiteUrl":""}`, KindGeneric},
		{"package", `{"id":"b","type":"Silver Template Site","packageType":"template_one","locations":"","themeColor":"#112233","font":"Inter","price":"£499"}`, KindPackage},
		{"custom", `{"id":"c","type":"Fully Customised Website","packageType":"custom_quote","requirements":"A bespoke property search","budgetRange":"","timeline":""}`, KindCustom},
		{"package without packageType", `{"id":"d","type":"Gold Template Site","themeColor":"","font":"","price":""}`, KindPackage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var e Enquiry
			require.NoError(t, json.Unmarshal([]byte(tc.blob), &e))
			assert.Equal(t, tc.want, e.Kind())
		})
	}
}

func TestEnquiry_PackageDetailsSurviveRoundTrip(t *testing.T) {
	in := &Enquiry{
		Record:          Record{ID: "p1", Type: "Gold Template Site", PackageType: PackageTemplateTwo, Status: StatusWon},
		ProjectDetails:  &ProjectDetails{Locations: "Leeds", AreasServed: "West Yorkshire"},
		TemplateDetails: &TemplateDetails{ThemeColor: "#0A0B0C", Font: "Lato", Price: "£799"},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Enquiry
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotNil(t, out.TemplateDetails)
	require.NotNil(t, out.ProjectDetails)
	assert.Nil(t, out.QuoteDetails)
	assert.Nil(t, out.AuditDetails)
	assert.Equal(t, "Lato", out.Font)
	assert.Equal(t, "Leeds", out.Locations)
}

func TestEnquiry_TouchIsAlwaysAfterCreatedAt(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	e := &Enquiry{Record: Record{CreatedAt: created}}

	e.Touch(created.Add(-time.Minute))
	require.NotNil(t, e.UpdatedAt)
	assert.Equal(t, created.Add(time.Millisecond), *e.UpdatedAt)

	e.Touch(created)
	assert.True(t, e.UpdatedAt.After(created))

	later := created.Add(time.Hour)
	e.Touch(later)
	assert.Equal(t, later, *e.UpdatedAt)
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" In_Review ")
	assert.True(t, ok)
	assert.Equal(t, StatusInReview, s)
	assert.Equal(t, "in review", s.Label())

	_, ok = ParseStatus("closed")
	assert.False(t, ok)
}

func TestPackageType_Valid(t *testing.T) {
	assert.True(t, PackageCustomQuote.Valid())
	assert.False(t, PackageType("template_three").Valid())
}

func TestIsTemplateFont(t *testing.T) {
	assert.Len(t, TemplateFonts, 20)
	assert.True(t, IsTemplateFont("Playfair Display"))
	assert.False(t, IsTemplateFont("Comic Sans MS"))
}

package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"enquirydesk/internal/domain"
	apperrors "enquirydesk/pkg/errors"
)

const exportSheet = "Enquiries"

// ExportColumns is the header row of the XLSX export
var ExportColumns = []string{
	"ID", "Created", "Updated", "Status", "Type", "Package",
	"Agency", "Contact", "Email", "Phone",
	"Website", "Locations", "Areas Served", "Desired Domain", "Existing Website",
	"Theme Colour", "Font", "Price",
	"Requirements", "Budget", "Timeline", "Message",
}

var exportColumnWidths = []float64{
	38, 20, 20, 12, 24, 14,
	24, 22, 28, 16,
	28, 20, 20, 22, 28,
	12, 18, 10,
	40, 14, 14, 40,
}

// Export writes the filtered, newest-first list as an XLSX workbook to w and
// returns the number of rows written.
func (s *EnquiryService) Export(ctx context.Context, filter domain.Filter, w io.Writer) (int, error) {
	all, _, err := s.loadAll(ctx)
	if err != nil {
		s.log.Error("export failed", zap.Error(err))
		return 0, storeFailure(OpExport, err)
	}
	rows := filter.Apply(all)

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, rows); err != nil {
		return 0, apperrors.Internal("failed to build workbook", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return 0, apperrors.Internal("failed to write workbook", err)
	}

	s.log.Info("enquiries exported", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func writeSheet(f *excelize.File, rows []*domain.Enquiry) error {
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for col, header := range ExportColumns {
		if err := setCell(f, col+1, 1, header); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(exportSheet, name, name, exportColumnWidths[col]); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(ExportColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, e := range rows {
		for col, value := range exportRow(e) {
			if value == "" {
				continue
			}
			if err := setCell(f, col+1, i+2, value); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func exportRow(e *domain.Enquiry) []string {
	updated := ""
	if e.UpdatedAt != nil {
		updated = e.UpdatedAt.Format(time.RFC3339)
	}
	row := []string{
		e.ID, e.CreatedAt.Format(time.RFC3339), updated, string(e.Status), e.Type, string(e.PackageType),
		e.AgencyName, e.ContactName, e.Email, e.Phone,
		"", "", "", "", "",
		"", "", "",
		"", "", "", e.Message,
	}
	if e.AuditDetails != nil {
		row[10] = e.WebsiteURL
	}
	if e.ProjectDetails != nil {
		row[11], row[12], row[13], row[14] = e.Locations, e.AreasServed, e.DesiredDomain, e.ExistingWebsite
	}
	if e.TemplateDetails != nil {
		row[15], row[16], row[17] = e.ThemeColor, e.Font, e.Price
	}
	if e.QuoteDetails != nil {
		row[18], row[19], row[20] = e.Requirements, e.BudgetRange, e.Timeline
	}
	return row
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(exportSheet, cell, value)
}

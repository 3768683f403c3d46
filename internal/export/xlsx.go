// Package export writes the notification log to spreadsheet files.
package export

import (
	"fmt"
	"io"

	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the notification rows.
const SheetName = "Notifications"

// Header is the first row of the export.
var Header = []string{"Timestamp (UTC)", "Kind", "Phone", "File", "Status", "Description", "ID"}

var columnWidths = []float64{22, 14, 18, 14, 12, 60, 38}

// WriteXLSX writes entries, in the given order, as an .xlsx workbook.
func WriteXLSX(w io.Writer, entries []notification.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			e.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(e.Kind),
			e.Phone,
			e.File,
			e.Status,
			e.Description,
			e.ID,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.AutoFilter(SheetName, fmt.Sprintf("A1:%s", last), nil); err != nil {
		return fmt.Errorf("failed to set filter: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

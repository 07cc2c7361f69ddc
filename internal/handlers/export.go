package handlers

import (
	"fmt"
	"io"

	"agriconnect/internal/models"

	"github.com/tealeg/xlsx"
)

// XLSXContentType is the MIME type of an Excel workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeaders = []string{
	"ID", "Crop", "Description", "Quantity", "Unit", "Price",
	"Available Until", "Location", "Created At", "Updated At",
}

// WriteProductsXLSX writes products as a single-sheet workbook, one row per
// product under a header row.
func WriteProductsXLSX(w io.Writer, products []models.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.CropName)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetInt(p.Quantity)
		row.AddCell().SetValue(p.Unit)
		row.AddCell().SetFloat(p.Price)
		row.AddCell().SetValue(p.AvailableUntil.String())
		row.AddCell().SetValue(p.Location)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet quote rows are written to.
const SheetName = "QUOTES"

// XLSXWriter implements SheetWriter by encoding a workbook to an io.Writer.
type XLSXWriter struct {
	out io.Writer
}

// NewXLSXWriter creates an XLSXWriter.
func NewXLSXWriter(out io.Writer) *XLSXWriter {
	return &XLSXWriter{out: out}
}

// Write encodes rows as a single-sheet workbook.
func (w *XLSXWriter) Write(_ context.Context, rows []QuoteRow) error {
	f, err := Workbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w.out); err != nil {
		return fmt.Errorf("encoding workbook: %w", err)
	}
	return nil
}

// Workbook builds the comparison workbook with a bold header row.
func Workbook(rows []QuoteRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	data := make([][]any, 0, len(rows)+1)
	data = append(data, header)
	for _, r := range rows {
		data = append(data, r.values())
	}
	for i, values := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "Q", 16); err != nil {
		f.Close()
		return nil, fmt.Errorf("sizing columns: %w", err)
	}
	return f, nil
}

package spreadsheet

import (
	"errors"
	"fmt"

	"github.com/stwalsh4118/ppm/api/internal/table"
	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is used when an Encoder has no sheet name.
const DefaultSheetName = "PPM"

// ContentType is the media type of the encoded workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetNameLength is the Excel limit on sheet names.
const maxSheetNameLength = 31

// ErrSheetName is returned for sheet names Excel would refuse.
var ErrSheetName = errors.New("invalid sheet name")

// Encoder writes tables as single-sheet xlsx workbooks.
type Encoder struct {
	SheetName string
}

// NewEncoder creates an Encoder for the given sheet name.
func NewEncoder(sheetName string) *Encoder {
	return &Encoder{SheetName: sheetName}
}

// Encode renders t as an xlsx workbook. The first row holds the column
// names, numeric columns are written as numbers and nulls as blank cells.
func (e *Encoder) Encode(t *table.Table) ([]byte, error) {
	sheet := e.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if len([]rune(sheet)) > maxSheetNameLength {
		return nil, fmt.Errorf("%w: %q is longer than %d characters", ErrSheetName, sheet, maxSheetNameLength)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSheetName, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet writer: %w", err)
	}

	columns := t.Columns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range t.Rows() {
		cells := make([]interface{}, len(columns))
		for j, c := range columns {
			cells[j] = row[j].Interface(c.Kind)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

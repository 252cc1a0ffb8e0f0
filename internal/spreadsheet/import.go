package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/stwalsh4118/ppm/api/internal/models"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnreadableWorkbook is returned when the upload is not an xlsx file.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	// ErrSheetNotFound is returned when the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrColumnNotFound is returned when the requested column does not exist.
	ErrColumnNotFound = errors.New("column not found")
	// ErrColumnRequired is returned when a sheet has several columns and none was chosen.
	ErrColumnRequired = errors.New("column required")
)

// Workbook is an uploaded workbook opened for identifier import.
type Workbook struct {
	sheets []string
	rows   map[string][][]string
}

// OpenWorkbook reads an xlsx workbook. At most maxBytes are read when
// maxBytes is positive.
func OpenWorkbook(r io.Reader, maxBytes int64) (*Workbook, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes)
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	wb := &Workbook{
		sheets: f.GetSheetList(),
		rows:   make(map[string][][]string),
	}
	for _, sheet := range wb.sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrUnreadableWorkbook, sheet, err)
		}
		wb.rows[sheet] = rows
	}
	return wb, nil
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return slices.Clone(w.sheets)
}

// Headers returns the first row of a sheet. An empty sheet name selects the
// first sheet.
func (w *Workbook) Headers(sheet string) ([]string, error) {
	rows, _, err := w.sheet(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []string{}, nil
	}
	return slices.Clone(rows[0]), nil
}

// Values returns the non-empty cells below the header of one column. An
// empty column name is accepted when the sheet has a single column.
func (w *Workbook) Values(sheet, column string) ([]string, error) {
	rows, name, err := w.sheet(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []string{}, nil
	}

	header := rows[0]
	idx := -1
	switch {
	case column != "":
		idx = slices.Index(header, column)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q in sheet %q", ErrColumnNotFound, column, name)
		}
	case len(header) == 1:
		idx = 0
	default:
		return nil, fmt.Errorf("%w: sheet %q has %d columns", ErrColumnRequired, name, len(header))
	}

	values := []string{}
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

func (w *Workbook) sheet(name string) ([][]string, string, error) {
	if name == "" {
		if len(w.sheets) == 0 {
			return nil, "", fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
		}
		name = w.sheets[0]
	}
	rows, ok := w.rows[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return rows, name, nil
}

// Import is the outcome of reading identifiers from a column.
type Import[T any] struct {
	Values   []T      `json:"values"`
	Rejected []string `json:"rejected"`
}

// ImportIdus keeps the values that are well-formed 14-character parcel
// identifiers, deduplicated and sorted.
func ImportIdus(values []string) Import[models.Idu] {
	out := Import[models.Idu]{Values: []models.Idu{}, Rejected: []string{}}
	for _, v := range values {
		idu, err := models.ParseIduString(v)
		if err != nil {
			out.Rejected = append(out.Rejected, v)
			continue
		}
		out.Values = append(out.Values, idu)
	}
	slices.SortFunc(out.Values, models.Idu.Compare)
	out.Values = slices.Compact(out.Values)
	return out
}

// ImportSirens keeps the values that have at least nine characters once
// whitespace is removed, deduplicated and sorted.
func ImportSirens(values []string) Import[models.Siren] {
	out := Import[models.Siren]{Values: []models.Siren{}, Rejected: []string{}}
	for _, v := range values {
		s, err := models.ParseSiren(v)
		if err != nil {
			out.Rejected = append(out.Rejected, v)
			continue
		}
		out.Values = append(out.Values, s)
	}
	slices.SortFunc(out.Values, models.Siren.Compare)
	out.Values = slices.Compact(out.Values)
	return out
}

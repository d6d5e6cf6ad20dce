package exportsvc

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"
)

// Column is one column of an exported view.
type Column[T any] struct {
	Header string
	Value  func(T) interface{}
}

// Sheet is a view (already sorted and filtered) ready to be written out.
type Sheet[T any] struct {
	Name    string
	Columns []Column[T]
	Rows    []T
}

// Headers returns the column titles in order.
func (s Sheet[T]) Headers() []string {
	headers := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		headers[i] = col.Header
	}
	return headers
}

// Records renders every row as text, eg. for a terminal table.
func (s Sheet[T]) Records() [][]string {
	records := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		rec := make([]string, len(s.Columns))
		for i, col := range s.Columns {
			rec[i] = Text(col.Value(row))
		}
		records = append(records, rec)
	}
	return records
}

// WriteXLSX writes s as a single-sheet workbook: a header row, then one row per record.
func WriteXLSX[T any](w io.Writer, s Sheet[T]) error {
	f := excelize.NewFile()
	defer f.Close()

	name := s.Name
	if name == "" {
		name = "Sheet1"
	}
	if name != "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return errors.Wrap(err, "naming sheet")
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	for i, header := range s.Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, header); err != nil {
			return errors.Wrapf(err, "writing header %s", cell)
		}
		if err := f.SetCellStyle(name, cell, cell, bold); err != nil {
			return errors.Wrapf(err, "styling header %s", cell)
		}
	}

	for r, row := range s.Rows {
		for c, col := range s.Columns {
			val := cellValue(col.Value(row))
			if val == "" || val == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(name, cell, val); err != nil {
				return errors.Wrapf(err, "writing cell %s", cell)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

// cellValue unwraps nullable values; invalid ones become empty cells.
func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case null.String:
		if !val.Valid {
			return ""
		}
		return val.String
	case null.Int:
		if !val.Valid {
			return ""
		}
		return val.Int
	case null.Bool:
		if !val.Valid {
			return ""
		}
		return val.Bool
	case null.Time:
		if !val.Valid {
			return ""
		}
		return val.Time
	}
	return v
}

// Text formats a cell value for display.
func Text(v interface{}) string {
	switch val := cellValue(v).(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Sí"
		}
		return "No"
	case time.Time:
		return val.Format("2006-01-02 15:04")
	default:
		return fmt.Sprint(val)
	}
}

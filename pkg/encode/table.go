package encode

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CSV encodes a table. The header row is written first when present; no
// index column is added.
type CSV struct {
	Header []string
	Rows   [][]string
}

func (c CSV) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if len(c.Header) > 0 {
		if err := cw.Write(c.Header); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(c.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (CSV) Extension() string   { return "csv" }
func (CSV) ContentType() string { return MimeCSV }

// Workbook encodes one sheet of an XLSX workbook as CSV. An empty Sheet
// selects the first sheet.
type Workbook struct {
	Path  string
	Sheet string
}

func (wb Workbook) Encode(w io.Writer) error {
	f, err := excelize.OpenFile(wb.Path)
	if err != nil {
		return fmt.Errorf("failed to open xlsx file %s: %w", wb.Path, err)
	}
	defer f.Close()

	sheet := wb.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return fmt.Errorf("xlsx file %s has no sheets", wb.Path)
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		if err := cw.Write(cols); err != nil {
			return err
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("failed iterating sheet %s: %w", sheet, err)
	}
	cw.Flush()
	return cw.Error()
}

// Name is the workbook's base name with a .csv extension.
func (wb Workbook) Name() string {
	base := filepath.Base(wb.Path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

func (Workbook) Extension() string   { return "csv" }
func (Workbook) ContentType() string { return MimeCSV }

// Package file reads revenue tables from uploaded or local .xlsx and .csv
// files.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"faturamento/internal/core"
	ports "faturamento/internal/sheets"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Reader reads a table from a file on disk each time it is asked.
type Reader struct {
	Path  string
	Sheet string // xlsx only; blank means the first sheet
}

var _ ports.TableReader = (*Reader)(nil)

func (r *Reader) ReadTable(_ context.Context) (core.Table, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return core.Table{}, fmt.Errorf("open %s: %w", r.Path, err)
	}
	defer f.Close()
	return Decode(filepath.Base(r.Path), f, r.Sheet)
}

// Decode picks the parser from the file name extension.
func Decode(name string, rd io.Reader, sheet string) (core.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(rd, sheet)
	case ".csv":
		return ReadCSV(rd)
	default:
		return core.Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ReadXLSX reads one worksheet with raw (unformatted) cell values.
func ReadXLSX(rd io.Reader, sheet string) (core.Table, error) {
	wb, err := excelize.OpenReader(rd)
	if err != nil {
		return core.Table{}, fmt.Errorf("failed to open excel: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		list := wb.GetSheetList()
		if len(list) == 0 {
			return core.Table{}, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}

	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return ports.FromValues(ports.StringRows(rows)), nil
}

// ReadCSV reads a comma separated file whose first record is the header.
// Rows may have differing lengths.
func ReadCSV(rd io.Reader) (core.Table, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return core.Table{}, fmt.Errorf("read csv: %w", err)
	}
	return ports.FromValues(ports.StringRows(records)), nil
}

// EncodeXLSX writes t as a single-sheet workbook.
func EncodeXLSX(t core.Table, sheet string) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := wb.SetSheetName("Sheet1", sheet); err != nil {
			return nil, err
		}
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		r := append([]any(nil), row...)
		if err := wb.SetSheetRow(sheet, cell, &r); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

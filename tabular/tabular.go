// Package tabular reads the header row and a short preview from CSV and XLSX
// uploads. It only produces the inputs an import session opens with; full row
// processing belongs to the host's RowProcessor.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-imports/core"
	"github.com/xuri/excelize/v2"
)

const DefaultPreviewRows = 5

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is the header row plus up to the requested number of data rows.
// Preview rows are padded to the header width.
type Table struct {
	Headers []string
	Preview [][]string
}

// OpenSessionRequest builds the request that opens a session for this table.
func (t Table) OpenSessionRequest(fileID string) core.OpenSessionRequest {
	preview := make([][]string, len(t.Preview))
	for i, row := range t.Preview {
		preview[i] = append([]string(nil), row...)
	}
	return core.OpenSessionRequest{
		FileID:      fileID,
		RawHeaders:  append([]string(nil), t.Headers...),
		PreviewRows: preview,
	}
}

// Read picks the reader from the file name extension.
func Read(name string, r io.Reader, previewRows int) (Table, error) {
	switch ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name))); ext {
	case ".csv", ".txt":
		return ReadCSV(r, previewRows)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, previewRows)
	default:
		return Table{}, fmt.Errorf("tabular: unsupported file type %q", ext)
	}
}

// ReadCSV reads the header row and preview of a UTF-8 CSV stream. A leading
// byte order mark is dropped. An empty stream yields an empty Table so the
// service can report it as an empty file.
func ReadCSV(r io.Reader, previewRows int) (Table, error) {
	if r == nil {
		return Table{}, fmt.Errorf("tabular: reader is required")
	}
	buffered := bufio.NewReader(r)
	if prefix, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("tabular: read csv header: %w", err)
	}

	table := Table{Headers: headers}
	limit := previewLimit(previewRows)
	for len(table.Preview) < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("tabular: read csv row %d: %w", len(table.Preview)+2, err)
		}
		table.Preview = append(table.Preview, padRow(record, len(headers)))
	}
	return table, nil
}

// ReadXLSX reads the first worksheet of an XLSX workbook. Rows are streamed
// so only the header and preview are materialized.
func ReadXLSX(r io.Reader, previewRows int) (table Table, err error) {
	if r == nil {
		return Table{}, fmt.Errorf("tabular: reader is required")
	}
	file, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("tabular: open workbook: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("tabular: close workbook: %w", closeErr)
		}
	}()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, nil
	}
	rows, err := file.Rows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("tabular: read sheet %q: %w", sheets[0], err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("tabular: close rows: %w", closeErr)
		}
	}()

	limit := previewLimit(previewRows)
	headerRead := false
	for rows.Next() {
		columns, colErr := rows.Columns()
		if colErr != nil {
			return Table{}, fmt.Errorf("tabular: read sheet %q: %w", sheets[0], colErr)
		}
		if !headerRead {
			table.Headers = columns
			headerRead = true
			continue
		}
		if isBlankRow(columns) {
			continue
		}
		table.Preview = append(table.Preview, padRow(columns, len(table.Headers)))
		if len(table.Preview) >= limit {
			break
		}
	}
	if err := rows.Error(); err != nil {
		return Table{}, fmt.Errorf("tabular: read sheet %q: %w", sheets[0], err)
	}
	return table, nil
}

func previewLimit(previewRows int) int {
	if previewRows <= 0 {
		return DefaultPreviewRows
	}
	return previewRows
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

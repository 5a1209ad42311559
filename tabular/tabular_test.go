package tabular

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-imports/core"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV_HeadersAndPreview(t *testing.T) {
	input := "\ufeffTitle,Units,Price\nBook A,3,9.99\nBook B,1\n\"Book, C\",2,4.50\nBook D,5,1.00\n"
	table, err := ReadCSV(strings.NewReader(input), 2)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(table.Headers) != 3 || table.Headers[0] != "Title" {
		t.Fatalf("expected BOM-free headers, got %#v", table.Headers)
	}
	if len(table.Preview) != 2 {
		t.Fatalf("expected preview capped at 2 rows, got %d", len(table.Preview))
	}
	if got := table.Preview[1]; len(got) != 3 || got[0] != "Book B" || got[2] != "" {
		t.Fatalf("expected short row padded to header width, got %#v", got)
	}
}

func TestReadCSV_DefaultPreviewAndQuotedCells(t *testing.T) {
	var b strings.Builder
	b.WriteString("Title,Notes\n")
	for range 8 {
		b.WriteString("\"Book, Vol 1\",ok\n")
	}
	table, err := ReadCSV(strings.NewReader(b.String()), 0)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(table.Preview) != DefaultPreviewRows {
		t.Fatalf("expected default preview of %d rows, got %d", DefaultPreviewRows, len(table.Preview))
	}
	if table.Preview[0][0] != "Book, Vol 1" {
		t.Fatalf("expected quoted cell intact, got %q", table.Preview[0][0])
	}
}

func TestReadCSV_EmptyInputYieldsEmptyTable(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""), 5)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(table.Headers) != 0 || len(table.Preview) != 0 {
		t.Fatalf("expected empty table, got %#v", table)
	}
	if _, err := ReadCSV(nil, 5); err == nil {
		t.Fatalf("expected nil reader to fail")
	}
}

func TestReadXLSX_FirstSheet(t *testing.T) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	sheet := file.GetSheetName(0)
	rows := [][]any{
		{"Program Name", "Start Date", "End Date", "Views"},
		{"Show A", "2024-01-01", "2024-01-31", 1200},
		{},
		{"Show B", "2024-02-01"},
		{"Show C", "2024-03-01", "2024-03-31", 10},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := row
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row %d: %v", i, err)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	table, err := ReadXLSX(bytes.NewReader(buf.Bytes()), 2)
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if len(table.Headers) != 4 || table.Headers[3] != "Views" {
		t.Fatalf("unexpected headers %#v", table.Headers)
	}
	if len(table.Preview) != 2 {
		t.Fatalf("expected blank row skipped and preview capped, got %#v", table.Preview)
	}
	if table.Preview[0][3] != "1200" {
		t.Fatalf("expected numeric cell as text, got %q", table.Preview[0][3])
	}
	if got := table.Preview[1]; len(got) != 4 || got[0] != "Show B" || got[3] != "" {
		t.Fatalf("expected short row padded, got %#v", got)
	}
}

func TestRead_DispatchesOnExtension(t *testing.T) {
	if _, err := Read("royalties.CSV", strings.NewReader("Title\nBook\n"), 1); err != nil {
		t.Fatalf("read csv by extension: %v", err)
	}
	if _, err := Read("legacy.xls", strings.NewReader(""), 1); err == nil {
		t.Fatalf("expected legacy xls to be rejected")
	}
}

func TestTable_OpensSessionWithSuggestedMapping(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("Program Name,Start Date,End Date,Views\nShow,2024-01-01,2024-01-31,1200\n"), 5)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	svc, err := core.NewService(core.DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	session, err := svc.OpenSession(context.Background(), table.OpenSessionRequest("file_csv"))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if session.Mapping["impressions"] != "Views" || len(session.PreviewRows) != 1 {
		t.Fatalf("expected suggested mapping and preview, got %#v", session)
	}

	table.Headers[0] = "mutated"
	if session.RawHeaders[0] != "Program Name" {
		t.Fatalf("expected session headers detached from table")
	}
}

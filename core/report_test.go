package core

import "testing"

func TestImportReportAggregator_Counts(t *testing.T) {
	aggregator := NewImportReportAggregator(0)
	aggregator.Add(Accepted(1))
	aggregator.Add(Accepted(2))
	aggregator.Add(Skipped(3, "blank row"))
	aggregator.Add(Errored(4, "invalid date"))

	report := aggregator.Report()
	if report.AcceptedRowCount != 2 || report.SkippedRowCount != 2 || report.ErroredRowCount != 1 {
		t.Fatalf("unexpected counts %#v", report)
	}
	if !sameStrings(report.Errors, []string{"row 4: invalid date"}) {
		t.Fatalf("unexpected errors %#v", report.Errors)
	}
	if report.Message != "Imported 2 rows, skipped 2 rows (1 with errors)" {
		t.Fatalf("unexpected message %q", report.Message)
	}
}

func TestImportReportAggregator_TruncatesErrors(t *testing.T) {
	aggregator := NewImportReportAggregator(2)
	for row := 1; row <= 5; row++ {
		aggregator.Add(Errored(row, ""))
	}
	report := aggregator.Report()
	if len(report.Errors) != 2 || report.Truncated != 3 {
		t.Fatalf("expected two errors and three truncated, got %#v", report)
	}
	if report.Errors[0] != "row 1: row could not be imported" {
		t.Fatalf("expected default reason, got %q", report.Errors[0])
	}
	if report.SkippedRowCount != 5 {
		t.Fatalf("expected every errored row to count as skipped")
	}
}

func TestImportReportAggregator_Failure(t *testing.T) {
	aggregator := NewImportReportAggregator(10)
	aggregator.Add(Accepted(1))
	aggregator.Fail("connection reset")
	report := aggregator.Report()
	if len(report.Errors) != 1 || report.Errors[0] != "connection reset" {
		t.Fatalf("expected failure reason first, got %#v", report.Errors)
	}
	if report.Message != "Processing failed: connection reset. Imported 1 rows, skipped 0 rows" {
		t.Fatalf("unexpected message %q", report.Message)
	}
}

func TestImportReportAggregator_EmptyReport(t *testing.T) {
	report := NewImportReportAggregator(1).Report()
	if report.Errors == nil || report.Message != "Imported 0 rows, skipped 0 rows" {
		t.Fatalf("unexpected empty report %#v", report)
	}
}

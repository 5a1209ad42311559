package core

import (
	"fmt"
	"strings"
)

type RowOutcomeKind string

const (
	RowAccepted RowOutcomeKind = "accepted"
	RowSkipped  RowOutcomeKind = "skipped"
	RowErrored  RowOutcomeKind = "errored"
)

// RowOutcome is what the downstream row processor reports for one data row.
// Row is 1-based and refers to data rows, not the header.
type RowOutcome struct {
	Row    int            `json:"row"`
	Kind   RowOutcomeKind `json:"kind"`
	Reason string         `json:"reason,omitempty"`
}

func Accepted(row int) RowOutcome {
	return RowOutcome{Row: row, Kind: RowAccepted}
}

func Skipped(row int, reason string) RowOutcome {
	return RowOutcome{Row: row, Kind: RowSkipped, Reason: reason}
}

func Errored(row int, reason string) RowOutcome {
	return RowOutcome{Row: row, Kind: RowErrored, Reason: reason}
}

type ImportReport struct {
	AcceptedRowCount int      `json:"accepted_row_count"`
	SkippedRowCount  int      `json:"skipped_row_count"`
	ErroredRowCount  int      `json:"errored_row_count"`
	Errors           []string `json:"errors"`
	// Truncated counts row errors dropped once the error list was full.
	Truncated int    `json:"truncated,omitempty"`
	Message   string `json:"message"`
}

const defaultReportMaxErrors = 100

// ImportReportAggregator folds row outcomes into an ImportReport. Errored rows
// count as skipped and contribute their reason to the error list.
type ImportReportAggregator struct {
	maxErrors int
	report    ImportReport
	failure   string
}

func NewImportReportAggregator(maxErrors int) *ImportReportAggregator {
	if maxErrors <= 0 {
		maxErrors = defaultReportMaxErrors
	}
	return &ImportReportAggregator{
		maxErrors: maxErrors,
		report:    ImportReport{Errors: []string{}},
	}
}

func (a *ImportReportAggregator) Add(outcome RowOutcome) {
	if a == nil {
		return
	}
	switch outcome.Kind {
	case RowAccepted:
		a.report.AcceptedRowCount++
	case RowSkipped:
		a.report.SkippedRowCount++
	case RowErrored:
		a.report.SkippedRowCount++
		a.report.ErroredRowCount++
		reason := strings.TrimSpace(outcome.Reason)
		if reason == "" {
			reason = "row could not be imported"
		}
		a.appendError(fmt.Sprintf("row %d: %s", outcome.Row, reason))
	}
}

// Fail records an unrecoverable downstream fault; the raw reason leads the
// error list.
func (a *ImportReportAggregator) Fail(reason string) {
	if a == nil {
		return
	}
	a.failure = strings.TrimSpace(reason)
	if a.failure == "" {
		a.failure = "row processing failed"
	}
}

func (a *ImportReportAggregator) appendError(message string) {
	if len(a.report.Errors) >= a.maxErrors {
		a.report.Truncated++
		return
	}
	a.report.Errors = append(a.report.Errors, message)
}

func (a *ImportReportAggregator) Report() ImportReport {
	if a == nil {
		return ImportReport{Errors: []string{}}
	}
	report := a.report
	report.Errors = append([]string{}, a.report.Errors...)
	if a.failure != "" {
		report.Errors = append([]string{a.failure}, report.Errors...)
	}

	message := fmt.Sprintf("Imported %d rows, skipped %d rows", report.AcceptedRowCount, report.SkippedRowCount)
	if report.ErroredRowCount > 0 {
		message += fmt.Sprintf(" (%d with errors)", report.ErroredRowCount)
	}
	if report.Truncated > 0 {
		message += fmt.Sprintf(", %d more errors not shown", report.Truncated)
	}
	if a.failure != "" {
		message = "Processing failed: " + a.failure + ". " + message
	}
	report.Message = message
	return report
}

package core

import (
	"context"
	"sync"
	"testing"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// recordingProcessor emits the configured outcomes and counts calls.
type recordingProcessor struct {
	mu       sync.Mutex
	calls    int
	jobs     []ImportJob
	outcomes []RowOutcome
	err      error
	block    chan struct{}
	panicMsg string
}

func (p *recordingProcessor) ProcessRows(ctx context.Context, job ImportJob, emit func(RowOutcome)) error {
	p.mu.Lock()
	p.calls++
	p.jobs = append(p.jobs, job)
	outcomes := append([]RowOutcome(nil), p.outcomes...)
	block := p.block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	for _, outcome := range outcomes {
		emit(outcome)
	}
	return p.err
}

func (p *recordingProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// exampleCatalog models a schema where title and both period columns are
// always required and sales adds its amount columns.
func exampleCatalog(t *testing.T) *StaticCatalog {
	t.Helper()
	catalog, err := NewFieldCatalog(
		[]CanonicalField{
			{Key: "title", Label: "Title", Required: true},
			{Key: "period_start", Label: "Period Start", Required: true},
			{Key: "period_end", Label: "Period End", Required: true},
			{Key: "unit_price", Label: "Unit Price", Aliases: []string{"price"}},
			{Key: "quantity", Label: "Quantity", Aliases: []string{"qty"}},
			{Key: "royalty_amount", Label: "Royalty Amount", Aliases: []string{"royalty"}},
			{Key: "impressions", Label: "Impressions", Aliases: []string{"views"}},
		},
		[]GroupDefinition{
			{
				ID:              GroupSales,
				Label:           "Sales",
				IndicatorFields: []string{"unit_price", "quantity", "royalty_amount"},
				RequiredFields:  []string{"unit_price", "quantity", "royalty_amount"},
			},
			{
				ID:              GroupImpressions,
				Label:           "Impressions",
				IndicatorFields: []string{"impressions"},
				RequiredFields:  []string{"impressions"},
			},
		},
	)
	if err != nil {
		t.Fatalf("build example catalog: %v", err)
	}
	return catalog
}

func salesHeaders() []string {
	return []string{"Title", "Start Date", "End Date", "Price", "Qty", "Royalty", "Currency"}
}

func salesPreview() [][]string {
	return [][]string{
		{"Book A", "2024-01-01", "2024-01-31", "9.99", "3", "12.50", "USD"},
		{"Book B", "2024-01-01", "2024-01-31", "4.99", "1", "2.10", "USD"},
	}
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(DefaultConfig(), append([]Option{WithLogger(stubLogger{})}, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func sameStrings(left, right []string) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}

package core

import (
	"context"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func TestServiceObservability_OpenSessionSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.OpenSession(context.Background(), OpenSessionRequest{
		FileID:     "file_1",
		RawHeaders: salesHeaders(),
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	if !hasCounter(metrics.counters, "imports.open_session.total", "success") {
		t.Fatalf("expected imports.open_session.total success counter")
	}
	if !hasHistogram(metrics.histograms, "imports.open_session.duration_ms", "success") {
		t.Fatalf("expected imports.open_session.duration_ms histogram")
	}
	if !hasLog(logger.snapshot(), "info", "open_session succeeded", "open_session") {
		t.Fatalf("expected open_session succeeded structured log")
	}
	for _, counter := range metrics.counters {
		if _, ok := counter.tags["file_id"]; ok {
			t.Fatalf("expected file_id to stay out of metric tags, got %#v", counter.tags)
		}
	}
}

func TestServiceObservability_ConfirmMissingSessionIsRejection(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
		WithRowProcessor(&recordingProcessor{}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.ConfirmMapping(context.Background(), ConfirmMappingRequest{FileID: "missing"})
	if err == nil {
		t.Fatalf("expected confirm error for missing session")
	}
	if !hasCounter(metrics.counters, "imports.confirm_mapping.total", "failure") {
		t.Fatalf("expected confirm failure counter")
	}
	if !hasLog(logger.snapshot(), "warn", "confirm_mapping rejected", "confirm_mapping") {
		t.Fatalf("expected missing session to log as a rejection")
	}
	for _, counter := range metrics.counters {
		if counter.name == "imports.confirm_mapping.total" && counter.tags["error_text_code"] != ImportErrorSessionNotFound {
			t.Fatalf("expected error_text_code tag, got %#v", counter.tags)
		}
	}
}

func TestServiceObservability_EnrichesStructuredErrorFields(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	richErr := goerrors.New("processor timeout", goerrors.CategoryExternal).
		WithCode(502).
		WithTextCode(ImportErrorProcessingFailed).
		WithSeverity(goerrors.SeverityCritical).
		WithMetadata(map[string]any{"file_id": "file_1"})
	svc.observeOperation(
		context.Background(),
		time.Now().UTC().Add(-100*time.Millisecond),
		"confirm_mapping",
		richErr,
		map[string]any{"file_id": "file_1"},
	)

	records := logger.snapshot()
	if len(records) == 0 {
		t.Fatalf("expected logs to be emitted")
	}
	last := records[len(records)-1]
	if last.level != "error" || last.msg != "confirm_mapping failed" {
		t.Fatalf("expected external failure at error level, got %s %q", last.level, last.msg)
	}
	if last.fields["error_category"] != "external" {
		t.Fatalf("expected error_category external, got %#v", last.fields["error_category"])
	}
	if last.fields["error_text_code"] != ImportErrorProcessingFailed {
		t.Fatalf("expected error_text_code %q, got %#v", ImportErrorProcessingFailed, last.fields["error_text_code"])
	}
	if last.fields["error_severity"] != goerrors.SeverityCritical.String() {
		t.Fatalf("expected critical severity, got %#v", last.fields["error_severity"])
	}
	metadata, ok := last.fields["error_metadata"].(map[string]any)
	if !ok || metadata["file_id"] != "file_1" {
		t.Fatalf("expected error_metadata map, got %#v", last.fields["error_metadata"])
	}
}

func hasCounter(items []capturedCounter, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(items []capturedLog, level string, message string, eventType string) bool {
	for _, item := range items {
		if item.level != level {
			continue
		}
		if item.msg != message {
			continue
		}
		if item.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}

package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-imports/core"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDConfirmMapping      = "imports.mapping.confirm"
	ScriptPathConfirmMapping = "imports.mapping.confirm"

	idempotencyKeyPrefix = "imports.confirm::"
)

// Confirmer is the slice of core.ImportService a confirm worker needs.
type Confirmer interface {
	ConfirmMapping(ctx context.Context, req core.ConfirmMappingRequest) (core.ConfirmMappingResult, error)
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay <= 0 && out.Requeue && p.BaseDelay > 0 {
		out.Delay = p.BaseDelay * time.Duration(max(attempt, 1))
	}
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ConfirmMappingMessage builds the queued form of a confirm request. The
// idempotency key is derived from the file id so duplicate submissions
// collapse in queues that honour it.
func ConfirmMappingMessage(req core.ConfirmMappingRequest) (*job.ExecutionMessage, error) {
	fileID := strings.TrimSpace(req.FileID)
	if fileID == "" {
		return nil, fmt.Errorf("gojob: file id is required")
	}
	params := map[string]any{"file_id": fileID}
	if req.Mapping != nil {
		mapping := make(map[string]any, len(req.Mapping))
		for key, header := range req.Mapping {
			mapping[key] = header
		}
		params["mapping"] = mapping
	}
	return &job.ExecutionMessage{
		JobID:          JobIDConfirmMapping,
		ScriptPath:     ScriptPathConfirmMapping,
		Parameters:     params,
		IdempotencyKey: idempotencyKeyPrefix + fileID,
	}, nil
}

// ConfirmRequestFromMessage decodes a queued confirm message. Mapping
// parameters survive JSON transport as map[string]any.
func ConfirmRequestFromMessage(msg *job.ExecutionMessage) (core.ConfirmMappingRequest, error) {
	if msg == nil {
		return core.ConfirmMappingRequest{}, fmt.Errorf("gojob: execution message is required")
	}
	if jobID := strings.TrimSpace(msg.JobID); jobID != JobIDConfirmMapping {
		return core.ConfirmMappingRequest{}, fmt.Errorf("gojob: unexpected job id %q", jobID)
	}
	fileID, _ := msg.Parameters["file_id"].(string)
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return core.ConfirmMappingRequest{}, fmt.Errorf("gojob: file id parameter is required")
	}
	req := core.ConfirmMappingRequest{FileID: fileID}

	switch raw := msg.Parameters["mapping"].(type) {
	case nil:
	case map[string]string:
		req.Mapping = core.Mapping(raw).Clone()
	case core.Mapping:
		req.Mapping = raw.Clone()
	case map[string]any:
		req.Mapping = make(core.Mapping, len(raw))
		for key, value := range raw {
			header, ok := value.(string)
			if !ok {
				return core.ConfirmMappingRequest{}, fmt.Errorf("gojob: mapping value for %q must be a string", key)
			}
			req.Mapping[key] = header
		}
	default:
		return core.ConfirmMappingRequest{}, fmt.Errorf("gojob: unsupported mapping parameter type %T", raw)
	}
	return req, nil
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) EnqueueConfirm(ctx context.Context, req core.ConfirmMappingRequest) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := ConfirmMappingMessage(req)
	if err != nil {
		return err
	}
	return a.enqueuer.Enqueue(ctx, msg)
}

// Outcome records how a delivery was settled.
type Outcome string

const (
	OutcomeAcked        Outcome = "acked"
	OutcomeRequeued     Outcome = "requeued"
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// ConfirmWorker settles queued confirm deliveries against a Confirmer.
type ConfirmWorker struct {
	confirmer Confirmer
	policy    RetryPolicy
	logger    glog.Logger
}

func NewConfirmWorker(confirmer Confirmer, policy RetryPolicy, logger glog.Logger) *ConfirmWorker {
	return &ConfirmWorker{
		confirmer: confirmer,
		policy:    policy,
		logger:    glog.Ensure(logger),
	}
}

// Handle runs one delivery. Success and AlreadyProcessed ack, since the
// session already reached a terminal status or another worker owns it.
// Caller mistakes and processor failures dead-letter: the session is either
// still pending for the user to fix or already failed. Anything else is
// treated as transient and requeued within the retry policy.
func (w *ConfirmWorker) Handle(ctx context.Context, delivery queue.Delivery, attempt int) (Outcome, error) {
	if w == nil || w.confirmer == nil {
		return "", fmt.Errorf("gojob: confirm worker is not configured")
	}
	if delivery == nil {
		return "", fmt.Errorf("gojob: delivery is required")
	}

	req, err := ConfirmRequestFromMessage(delivery.Message())
	if err != nil {
		w.logger.Warn("imports confirm job rejected", "error", err.Error())
		return w.nack(ctx, delivery, queue.NackOptions{DeadLetter: true, Reason: err.Error()}, attempt)
	}

	result, err := w.confirmer.ConfirmMapping(ctx, req)
	if err == nil {
		w.logger.Info("imports confirm job completed",
			"file_id", req.FileID,
			"accepted_rows", result.Report.AcceptedRowCount,
			"skipped_rows", result.Report.SkippedRowCount,
		)
		return OutcomeAcked, delivery.Ack(ctx)
	}

	textCode := errorTextCode(err)
	switch textCode {
	case core.ImportErrorAlreadyProcessed:
		w.logger.Info("imports confirm job skipped", "file_id", req.FileID, "reason", err.Error())
		return OutcomeAcked, delivery.Ack(ctx)
	case core.ImportErrorMappingInvalid,
		core.ImportErrorEmptyFile,
		core.ImportErrorBadInput,
		core.ImportErrorSessionNotFound,
		core.ImportErrorProcessingFailed:
		w.logger.Warn("imports confirm job dead-lettered", "file_id", req.FileID, "error_text_code", textCode, "error", err.Error())
		return w.nack(ctx, delivery, queue.NackOptions{DeadLetter: true, Reason: err.Error()}, attempt)
	default:
		w.logger.Error("imports confirm job failed", "file_id", req.FileID, "attempt", attempt, "error", err.Error())
		return w.nack(ctx, delivery, queue.NackOptions{Requeue: true, Reason: err.Error()}, attempt)
	}
}

func (w *ConfirmWorker) nack(ctx context.Context, delivery queue.Delivery, opts queue.NackOptions, attempt int) (Outcome, error) {
	normalized := w.policy.NormalizeAttempt(opts, attempt)
	outcome := OutcomeRequeued
	if normalized.DeadLetter {
		outcome = OutcomeDeadLettered
	}
	return outcome, delivery.Nack(ctx, normalized)
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	worker   *ConfirmWorker
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, worker *ConfirmWorker) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, worker: worker}
}

// RunOnce dequeues and settles a single delivery.
func (a *DequeuerAdapter) RunOnce(ctx context.Context, attempt int) (Outcome, error) {
	if a == nil || a.dequeuer == nil || a.worker == nil {
		return "", fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return "", err
	}
	return a.worker.Handle(ctx, delivery, attempt)
}

// LoggingHook reports go-job worker lifecycle events through a glog logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.log("info", "imports job started", event)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.log("info", "imports job succeeded", event)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.log("error", "imports job failed", event)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.log("warn", "imports job retry scheduled", event)
}

func (h *LoggingHook) log(level string, message string, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	args := eventFields(event)
	switch level {
	case "error":
		h.logger.Error(message, args...)
	case "warn":
		h.logger.Warn(message, args...)
	default:
		h.logger.Info(message, args...)
	}
}

func eventFields(event worker.Event) []any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	args := []any{"attempt", event.Attempt}
	if message != nil {
		args = append(args, "job_id", message.JobID)
		if fileID, ok := message.Parameters["file_id"].(string); ok {
			args = append(args, "file_id", fileID)
		}
	}
	if event.Delay > 0 {
		args = append(args, "delay_ms", event.Delay.Milliseconds())
	}
	if event.Duration > 0 {
		args = append(args, "duration_ms", event.Duration.Milliseconds())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	return args
}

func errorTextCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich.TextCode
	}
	return ""
}

var _ worker.Hook = (*LoggingHook)(nil)

// Package audit implements the AuditSink fan-out and logging sinks that
// record every policy decision and governance action the orchestrator takes.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/odin-run/odin/internal/application/apperrors"
)

// Record is one audit entry. TsUnix is stamped once by the caller before
// the record reaches any Sink, so every sink along a MultiSink records the
// same timestamp for the same event.
type Record struct {
	ID        string          `json:"id"`
	TsUnix    int64           `json:"ts_unix"`
	EventType string          `json:"event_type"`
	RequestID string          `json:"request_id,omitempty"`
	TaskID    string          `json:"task_id,omitempty"`
	Project   string          `json:"project,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Sink records an audit Record, or reports why it could not.
type Sink interface {
	Record(ctx context.Context, record Record) error
}

// NoopSink discards every record, for callers that run with audit
// disabled.
type NoopSink struct{}

// Record implements Sink.
func (NoopSink) Record(context.Context, Record) error { return nil }

// MemorySink is an in-process Sink that retains every record, for tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record implements Sink.
func (s *MemorySink) Record(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a snapshot of every recorded Record, in record order.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// LogSink records every audit event as a structured slog entry at info
// level, the way the rest of the CLI emits its own diagnostics.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink returns a LogSink writing through logger, or slog.Default if
// logger is nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(ctx context.Context, record Record) error {
	s.Logger.LogAttrs(ctx, slog.LevelInfo, "audit."+record.EventType,
		slog.String("audit_id", record.ID),
		slog.Int64("ts_unix", record.TsUnix),
		slog.String("request_id", record.RequestID),
		slog.String("task_id", record.TaskID),
		slog.String("project", record.Project),
		slog.Any("metadata", json.RawMessage(record.Metadata)),
	)
	return nil
}

// MultiSink fans a single Record out to every sink in order, stopping and
// returning the first error so the caller can treat partial audit failure
// the same as any other audit failure.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one Sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Record implements Sink, recording to every wrapped sink in order.
func (m *MultiSink) Record(ctx context.Context, record Record) error {
	for _, sink := range m.sinks {
		if err := sink.Record(ctx, record); err != nil {
			return apperrors.Audit("audit sink failed", err)
		}
	}
	return nil
}

// NewID returns a fresh audit record identifier.
func NewID() string {
	return uuid.NewString()
}

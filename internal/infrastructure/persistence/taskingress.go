// Package persistence implements the TaskIngress adapters that receive
// follow-up task payloads enqueued by governance.Orchestrator.
// HandleWatchdogTask: a file-backed, append-only sink for production use
// and an in-memory sink for tests, both of which serialize individual
// writes so a concurrent reader always sees whole envelopes.
package persistence

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/odin-run/odin/internal/application/apperrors"
)

// FileTaskIngress appends each follow-up task payload as its own
// newline-delimited line to a file, serialized by a mutex so concurrent
// callers never interleave partial writes.
type FileTaskIngress struct {
	path string
	mu   sync.Mutex
}

// NewFileTaskIngress returns a FileTaskIngress appending to path, creating
// it if necessary.
func NewFileTaskIngress(path string) *FileTaskIngress {
	return &FileTaskIngress{path: path}
}

// WriteTaskPayload implements governance.TaskIngress.
func (f *FileTaskIngress) WriteTaskPayload(_ context.Context, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path is an operator-configured task queue file, not user input
	if err != nil {
		return apperrors.Execution(fmt.Sprintf("failed to open task ingress file %s", f.path), err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.WriteString(payload + "\n"); err != nil {
		return apperrors.Execution("failed to write follow-up task payload", err)
	}
	return nil
}

// MemoryTaskIngress retains every payload written to it, in order, for
// tests asserting on watchdog follow-up task content.
type MemoryTaskIngress struct {
	mu       sync.Mutex
	payloads []string
}

// NewMemoryTaskIngress returns an empty MemoryTaskIngress.
func NewMemoryTaskIngress() *MemoryTaskIngress {
	return &MemoryTaskIngress{}
}

// WriteTaskPayload implements governance.TaskIngress.
func (m *MemoryTaskIngress) WriteTaskPayload(_ context.Context, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return nil
}

// Payloads returns a snapshot of every payload written, in write order.
func (m *MemoryTaskIngress) Payloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.payloads))
	copy(out, m.payloads)
	return out
}

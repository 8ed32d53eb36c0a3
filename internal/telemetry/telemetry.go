// Package telemetry records a JSONL event stream for haloprep runs. Every
// halo dispatched, survey set up or failed, and manifest written is logged
// as one JSON object per line so a run can be audited after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart        = "run_start"
	KindRunDone         = "run_done"
	KindSelection       = "selection"
	KindHaloStart       = "halo_start"
	KindHaloDone        = "halo_done"
	KindTaskDone        = "task_done"
	KindTaskFailed      = "task_failed"
	KindManifestWritten = "manifest_written"
	KindCleanRemoved    = "clean_removed"
)

// Event represents a single telemetry record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	HaloID    *int64    `json:"halo,omitempty"` // nil for run-level events
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	RunID string

	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// Halo returns a HaloID value for id. Halo 0 is a valid catalogue ID, so
// run-level events leave HaloID nil instead.
func Halo(id int64) *int64 {
	return &id
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// NewEmitter creates an Emitter appending to the file at path. Events
// without a RunID are stamped with runID.
func NewEmitter(path, runID string) (*Emitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		RunID: runID,
		file:  f,
		enc:   json.NewEncoder(f),
	}, nil
}

// Emit writes a single event. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.RunID == "" {
		evt.RunID = e.RunID
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file. Calling Close on a nil Emitter is a
// no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

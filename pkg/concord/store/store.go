// Package store records annotation runs: which document was processed, in
// which mode, over which text, and how it ended.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"
)

// Store is the run ledger.
type Store interface {
	Close() error

	// RecordRun inserts a run, or replaces the run with the same ID.
	RecordRun(ctx context.Context, r Run) error
	// GetRun returns internalerr.ErrNotFound for an unknown ID.
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns a document's runs, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, documentID string, limit int) ([]Run, error)
	// LastSuccess returns the newest succeeded run over the given content.
	LastSuccess(ctx context.Context, contentHash string, mode Mode) (Run, bool, error)
}

// Mode is the entry point that produced a run.
type Mode string

const (
	ModeAnnotate Mode = "annotate"
	ModeAlign    Mode = "align"
	ModeIngest   Mode = "ingest"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one ledger entry.
type Run struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	ContentHash string    `json:"content_hash"`
	Mode        Mode      `json:"mode"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Language    string    `json:"language"`
	Tool        string    `json:"tool"`
	Sections    int       `json:"sections"`
	Sentences   int       `json:"sentences"`
	Mentions    int       `json:"mentions"`
	Entities    int       `json:"entities"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ContentHash returns the hex blake3 digest of a document text.
func ContentHash(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IDSource issues monotonic ULIDs. It is safe for concurrent use.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDSource creates an IDSource seeded from crypto/rand.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a ULID for time t.
func (s *IDSource) New(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]store.Run
	byDoc map[string][]string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:  make(map[string]store.Run),
		byDoc: make(map[string][]string),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// RecordRun inserts or replaces a run, keyed by ID.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return internalerr.NewValidation("id", "run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.runs[r.ID]; ok {
		s.byDoc[old.DocumentID] = remove(s.byDoc[old.DocumentID], r.ID)
	}
	s.runs[r.ID] = r
	s.byDoc[r.DocumentID] = append(s.byDoc[r.DocumentID], r.ID)
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, internalerr.ErrNotFound
	}
	return r, nil
}

// ListRuns returns the runs of a document, newest first.
func (s *Store) ListRuns(ctx context.Context, documentID string, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byDoc[documentID]
	out := make([]store.Run, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.runs[id])
	}
	sortNewest(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LastSuccess returns the newest succeeded run over contentHash in mode.
func (s *Store) LastSuccess(ctx context.Context, contentHash string, mode store.Mode) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []store.Run
	for _, r := range s.runs {
		if r.ContentHash == contentHash && r.Mode == mode && r.Status == store.StatusSucceeded {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return store.Run{}, false, nil
	}
	sortNewest(matches)
	return matches[0], true, nil
}

func sortNewest(runs []store.Run) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID > runs[j].ID
	})
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Package selection holds the ordered set of media records the user has
// picked for download. It is owned by the delivery layer; the orchestrator
// only ever sees immutable snapshots taken at run start.
package selection

import (
	"context"
	"log/slog"
	"sync"

	"konbata/internal/entity"
	"konbata/internal/errs"
	"konbata/pkg/urls"
)

// Set is an ordered collection of MediaRecord keyed by normalized source
// URL. Submitting the same URL twice upserts (merge) instead of duplicating.
// All methods are safe for concurrent use.
type Set struct {
	log *slog.Logger

	mu      sync.RWMutex
	order   []string                       // insertion order of keys
	records map[string]*entity.MediaRecord // key : record
}

// New creates an empty selection set.
func New(log *slog.Logger) *Set {
	return &Set{
		log:     log.With(slog.String("package", "selection")),
		records: make(map[string]*entity.MediaRecord),
	}
}

// Upsert inserts the record or merges it into the existing entry with the
// same source URL. Returns the stored state of the record after the merge.
func (s *Set) Upsert(ctx context.Context, rec entity.MediaRecord) entity.MediaRecord {
	key := urls.Normalize(rec.SourceURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[key]
	if !ok {
		stored := rec.Clone()
		stored.SourceURL = key

		s.records[key] = &stored
		s.order = append(s.order, key)

		s.log.DebugContext(ctx, "record added", "record", stored)

		return stored.Clone()
	}

	existing.Merge(rec)
	existing.SourceURL = key

	s.log.DebugContext(ctx, "record merged", "record", *existing)

	return existing.Clone()
}

// Get returns a copy of the record for the given URL.
func (s *Set) Get(_ context.Context, url string) (entity.MediaRecord, error) {
	key := urls.Normalize(url)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return entity.MediaRecord{}, errs.ErrRecordNotFound
	}

	return rec.Clone(), nil
}

// Remove deletes the record for the given URL.
func (s *Set) Remove(ctx context.Context, url string) error {
	key := urls.Normalize(url)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return errs.ErrRecordNotFound
	}

	delete(s.records, key)

	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	s.log.DebugContext(ctx, "record removed", slog.String("url", key))

	return nil
}

// Clear empties the selection.
func (s *Set) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.records = make(map[string]*entity.MediaRecord)

	s.log.DebugContext(ctx, "selection cleared")
}

// Len returns the number of records in the selection.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

// Snapshot returns deep copies of all records in insertion order. The
// snapshot shares no memory with the set, so a running download is isolated
// from later UI edits.
func (s *Set) Snapshot(_ context.Context) []entity.MediaRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.MediaRecord, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.records[key].Clone())
	}

	return out
}

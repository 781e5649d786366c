// Package registry holds the per-run document collection.
package registry

import (
	"fmt"
	"sort"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Registry is the single owner of document records for one validation run.
// It is immutable after construction; edges elsewhere refer to its documents
// by ID only.
type Registry struct {
	docs []models.DocumentRecord
	byID map[string]int
}

// New builds a registry from ingested records. Duplicate IDs are a fatal
// configuration error since the resolver indices would be unsound; an empty
// record set is a caller usage error.
func New(records []models.DocumentRecord) (*Registry, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("registry: %w", apperr.ErrEmptyCorpus)
	}

	docs := make([]models.DocumentRecord, len(records))
	copy(docs, records)
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		if prev, ok := byID[d.ID]; ok {
			return nil, fmt.Errorf("registry: id %q used by %s and %s: %w",
				d.ID, docs[prev].Path, d.Path, apperr.ErrDuplicateID)
		}
		byID[d.ID] = i
	}

	return &Registry{docs: docs, byID: byID}, nil
}

// Documents returns all records sorted by ID. Callers must not mutate it.
func (r *Registry) Documents() []models.DocumentRecord {
	return r.docs
}

// Get returns the record with the given ID.
func (r *Registry) Get(id string) (models.DocumentRecord, bool) {
	i, ok := r.byID[id]
	if !ok {
		return models.DocumentRecord{}, false
	}
	return r.docs[i], true
}

// Contains reports whether a document with the given ID exists.
func (r *Registry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Len returns the number of documents.
func (r *Registry) Len() int {
	return len(r.docs)
}

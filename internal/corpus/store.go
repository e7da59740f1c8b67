package corpus

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Store is the immutable, in-memory passage collection.
// Position in the store is the insertion order used for tie-breaks.
type Store struct {
	docs         []document.Document
	byID         map[string]int
	partitionKey string
	partitions   map[string][]int
	names        []string
}

// NewStore indexes docs by id and by the partition metadata key.
func NewStore(docs []document.Document, partitionKey string) (*Store, error) {
	if len(docs) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	s := &Store{
		docs:         make([]document.Document, len(docs)),
		byID:         make(map[string]int, len(docs)),
		partitionKey: partitionKey,
		partitions:   make(map[string][]int),
	}
	copy(s.docs, docs)

	for i := range s.docs {
		id := s.docs[i].ID()
		if _, dup := s.byID[id]; dup {
			return nil, fmt.Errorf("duplicate document id %q", id)
		}
		s.byID[id] = i
		if p := s.docs[i].Partition(partitionKey); p != "" {
			s.partitions[p] = append(s.partitions[p], i)
		}
	}

	for name := range s.partitions {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	return s, nil
}

// Len returns the number of passages.
func (s *Store) Len() int { return len(s.docs) }

// PartitionKey returns the metadata key partitions are built from.
func (s *Store) PartitionKey() string { return s.partitionKey }

// At returns the passage at insertion position i.
func (s *Store) At(i int) *document.Document { return &s.docs[i] }

// Get returns a passage and its insertion position.
func (s *Store) Get(id string) (*document.Document, int, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, 0, false
	}
	return &s.docs[i], i, true
}

// Lookup resolves ids in order, failing on the first unknown one.
func (s *Store) Lookup(ids []string) ([]document.Document, error) {
	out := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		d, _, ok := s.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		out = append(out, *d)
	}
	return out, nil
}

// Partitions returns the known partition values, sorted.
func (s *Store) Partitions() []string { return s.names }

// HasPartition reports whether any passage belongs to p.
func (s *Store) HasPartition(p string) bool {
	_, ok := s.partitions[p]
	return ok
}

// Positions returns insertion positions in partition p, or every position when p is empty.
func (s *Store) Positions(p string) []int {
	if p == "" {
		all := make([]int, len(s.docs))
		for i := range all {
			all[i] = i
		}
		return all
	}
	return s.partitions[p]
}

// Contents returns the passage texts in insertion order.
func (s *Store) Contents() []string {
	out := make([]string, len(s.docs))
	for i := range s.docs {
		out[i] = s.docs[i].Content()
	}
	return out
}

package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
)

type memoryEntry struct {
	data json.RawMessage
	seq  uint64
}

// MemoryStore is a DocumentStore held in process memory. It backs local
// development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memoryEntry
	seq         uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.collections[collection][id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &Document{Collection: collection, ID: id, Data: clone(entry.data)}, nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		id    string
		entry *memoryEntry
	}
	rows := make([]row, 0, len(s.collections[collection]))
	for id, entry := range s.collections[collection] {
		rows = append(rows, row{id: id, entry: entry})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].entry.seq < rows[j].entry.seq })

	docs := make([]*Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, &Document{Collection: collection, ID: r.id, Data: clone(r.entry.data)})
	}
	return docs, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(collection, id, data)
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; ok {
		return errors.ErrConflict
	}
	s.setLocked(collection, id, data)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := NewID()
	return id, s.Set(ctx, collection, id, data)
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return errors.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Batch(ctx context.Context, writes ...Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		if _, ok := s.collections[w.Collection][w.ID]; ok && w.Op == OpCreate {
			return errors.ErrConflict
		}
	}

	for _, w := range writes {
		switch w.Op {
		case OpSet, OpCreate:
			s.setLocked(w.Collection, w.ID, w.Data)
		case OpDelete:
			delete(s.collections[w.Collection], w.ID)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// setLocked overwrites a document, keeping its original position in List.
func (s *MemoryStore) setLocked(collection, id string, data json.RawMessage) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*memoryEntry)
		s.collections[collection] = docs
	}
	if entry, ok := docs[id]; ok {
		entry.data = clone(data)
		return
	}
	s.seq++
	docs[id] = &memoryEntry{data: clone(data), seq: s.seq}
}

func clone(data json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}

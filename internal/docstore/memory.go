package docstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type record struct {
	data    map[string]interface{}
	created time.Time
	updated time.Time
}

// Memory is a process-local Store. It backs the service when no database is
// configured and serves as the fake in tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]*record
	now         func() time.Time
	writes      atomic.Int64
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]*record),
		now:         time.Now,
	}
}

// Writes returns the number of document writes committed so far.
func (m *Memory) Writes() int64 {
	return m.writes.Load()
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return toDocument(id, rec)
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, 0, len(m.collections[collection]))
	for id, rec := range m.collections[collection] {
		ok, err := Matches(rec.data, q.Filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		doc, err := toDocument(id, rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	SortDocuments(docs, q.OrderBy, q.Direction)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (m *Memory) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	return m.Commit(ctx, NewBatch().Set(collection, id, data, merge))
}

func (m *Memory) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return m.Commit(ctx, NewBatch().Update(collection, id, data))
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.Commit(ctx, NewBatch().Delete(collection, id))
}

func (m *Memory) Commit(ctx context.Context, b *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, match := range b.FieldMatches() {
		rec, ok := m.collections[match.Collection][match.ID]
		if !ok {
			return fmt.Errorf("%s/%s: %w", match.Collection, match.ID, ErrNotFound)
		}
		same, err := SameValue(rec.data[match.Field], match.Value)
		if err != nil {
			return err
		}
		if !same {
			return fmt.Errorf("%s/%s field %s changed: %w", match.Collection, match.ID, match.Field, ErrPrecondition)
		}
	}

	now := m.now()
	// Stage every write against a copy-on-write view so a failing write leaves
	// the store untouched.
	staged := make(map[string]map[string]*record)
	lookup := func(collection, id string) (*record, bool) {
		if coll, ok := staged[collection]; ok {
			if rec, ok := coll[id]; ok {
				return rec, rec != nil
			}
		}
		rec, ok := m.collections[collection][id]
		return rec, ok
	}
	stage := func(collection, id string, rec *record) {
		if staged[collection] == nil {
			staged[collection] = make(map[string]*record)
		}
		staged[collection][id] = rec
	}

	for _, w := range b.Writes() {
		existing, exists := lookup(w.Collection, w.ID)
		switch w.Kind {
		case WriteDelete:
			stage(w.Collection, w.ID, nil)
			continue
		case WriteUpdate:
			if !exists {
				return fmt.Errorf("%s/%s: %w", w.Collection, w.ID, ErrNotFound)
			}
		}

		var current map[string]interface{}
		created := now
		if exists {
			current = existing.data
			created = existing.created
		}
		data, err := Apply(current, w.Data, w.Merge && exists, now)
		if err != nil {
			return err
		}
		stage(w.Collection, w.ID, &record{data: data, created: created, updated: now})
	}

	for _, guard := range b.MinDocs() {
		n := len(m.collections[guard.Collection])
		for id, rec := range staged[guard.Collection] {
			_, before := m.collections[guard.Collection][id]
			switch {
			case rec == nil && before:
				n--
			case rec != nil && !before:
				n++
			}
		}
		if n < guard.Count {
			return fmt.Errorf("%s needs at least %d documents: %w", guard.Collection, guard.Count, ErrPrecondition)
		}
	}

	for collection, recs := range staged {
		for id, rec := range recs {
			if rec == nil {
				delete(m.collections[collection], id)
				continue
			}
			if m.collections[collection] == nil {
				m.collections[collection] = make(map[string]*record)
			}
			m.collections[collection][id] = rec
		}
	}
	m.writes.Add(int64(b.Len()))
	return nil
}

func toDocument(id string, rec *record) (*Document, error) {
	copied, err := Normalize(rec.data)
	if err != nil {
		return nil, err
	}
	data, _ := copied.(map[string]interface{})
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Document{ID: id, Data: data, CreateTime: rec.created, UpdateTime: rec.updated}, nil
}

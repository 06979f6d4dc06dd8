// Package docstore defines the document-store contract the project, frame and
// collaboration stores are written against, plus an in-memory implementation.
//
// Documents are JSON objects addressed by (collection, id). Sub-collections are
// plain collection paths such as "projects/{id}/frames".
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrPrecondition means a batch precondition did not hold at commit time.
	ErrPrecondition = errors.New("precondition failed")
)

type Document struct {
	ID         string
	Data       map[string]interface{}
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document fields into v using its json tags.
func (d *Document) DataTo(v interface{}) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// FromStruct converts a tagged struct into document fields.
func FromStruct(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Query struct {
	Filters   []Filter
	OrderBy   string
	Direction Direction
	Limit     int
}

func (q Query) Where(field string, op Op, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Create stores data under a generated ID.
	Create(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Set writes a document. With merge the given top-level fields are merged
	// into an existing document; otherwise the document is replaced.
	Set(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error
	// Update merges fields into an existing document and fails with ErrNotFound
	// when it does not exist.
	Update(ctx context.Context, collection, id string, data map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	// Commit applies every write of the batch atomically.
	Commit(ctx context.Context, b *Batch) error
}

type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteUpdate
	WriteDelete
)

type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Data       map[string]interface{}
	Merge      bool
}

// MinDocs requires Collection to hold at least Count documents once the
// batch's writes are applied.
type MinDocs struct {
	Collection string
	Count      int
}

// FieldMatch requires a document field to still hold Value when the batch
// commits. The comparison uses the normalized JSON form of Value.
type FieldMatch struct {
	Collection string
	ID         string
	Field      string
	Value      interface{}
}

type Batch struct {
	writes  []Write
	minDocs []MinDocs
	matches []FieldMatch
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(collection, id string, data map[string]interface{}, merge bool) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteSet, Collection: collection, ID: id, Data: data, Merge: merge})
	return b
}

func (b *Batch) Update(collection, id string, data map[string]interface{}) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteUpdate, Collection: collection, ID: id, Data: data, Merge: true})
	return b
}

func (b *Batch) Delete(collection, id string) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteDelete, Collection: collection, ID: id})
	return b
}

// RequireMinDocs makes the commit fail with ErrPrecondition, writing nothing,
// when collection would hold fewer than n documents afterwards. Commits with
// such a guard on the same collection are serialized.
func (b *Batch) RequireMinDocs(collection string, n int) *Batch {
	b.minDocs = append(b.minDocs, MinDocs{Collection: collection, Count: n})
	return b
}

func (b *Batch) MinDocs() []MinDocs {
	return b.minDocs
}

// RequireField makes the commit fail with ErrPrecondition, writing nothing,
// unless the field of the document still equals value. It is the
// compare-and-swap for read-modify-write updates.
func (b *Batch) RequireField(collection, id, field string, value interface{}) *Batch {
	b.matches = append(b.matches, FieldMatch{Collection: collection, ID: id, Field: field, Value: value})
	return b
}

func (b *Batch) FieldMatches() []FieldMatch {
	return b.matches
}

func (b *Batch) Writes() []Write {
	return b.writes
}

func (b *Batch) Len() int {
	return len(b.writes)
}

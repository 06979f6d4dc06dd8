package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"desyn-backend/internal/docstore"
)

// DocumentClient stores documents as JSONB rows of the documents table. Every
// write runs in a transaction that locks the rows it touches.
type DocumentClient struct {
	db *sql.DB
}

func NewDocumentClient(connectionString string) (*DocumentClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DocumentClient{db: db}, nil
}

func (d *DocumentClient) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	var raw []byte
	doc := docstore.Document{ID: id}
	err := d.db.QueryRowContext(ctx, `
		SELECT data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw, &doc.CreateTime, &doc.UpdateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return &doc, nil
}

func (d *DocumentClient) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	query, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var raw []byte
		var doc docstore.Document
		if err := rows.Scan(&doc.ID, &raw, &doc.CreateTime, &doc.UpdateTime); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (d *DocumentClient) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.NewString()
	if err := d.Set(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

func (d *DocumentClient) Set(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	return d.Commit(ctx, docstore.NewBatch().Set(collection, id, data, merge))
}

func (d *DocumentClient) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return d.Commit(ctx, docstore.NewBatch().Update(collection, id, data))
}

func (d *DocumentClient) Delete(ctx context.Context, collection, id string) error {
	return d.Commit(ctx, docstore.NewBatch().Delete(collection, id))
}

// Commit applies the batch in one transaction. Field transforms are resolved
// against the locked row and the transaction's NOW(). Document-count guards
// take a transaction-scoped advisory lock per collection before any write, so
// guarded commits on the same collection run one at a time. Field matches
// lock their row and compare before anything is written.
func (d *DocumentClient) Commit(ctx context.Context, b *docstore.Batch) error {
	if b.Len() == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var now time.Time
	if err := tx.QueryRowContext(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return fmt.Errorf("failed to read server time: %w", err)
	}

	guards := b.MinDocs()
	for _, guard := range guards {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", guard.Collection); err != nil {
			return fmt.Errorf("failed to lock collection %s: %w", guard.Collection, err)
		}
	}

	for _, match := range b.FieldMatches() {
		if err := checkField(ctx, tx, match); err != nil {
			return err
		}
	}

	for _, w := range b.Writes() {
		if err := applyWrite(ctx, tx, w, now); err != nil {
			return err
		}
	}

	for _, guard := range guards {
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM documents WHERE collection = $1",
			guard.Collection,
		).Scan(&n); err != nil {
			return fmt.Errorf("failed to count %s: %w", guard.Collection, err)
		}
		if n < guard.Count {
			return fmt.Errorf("%s needs at least %d documents: %w", guard.Collection, guard.Count, docstore.ErrPrecondition)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func checkField(ctx context.Context, tx *sql.Tx, match docstore.FieldMatch) error {
	var raw []byte
	err := tx.QueryRowContext(ctx, `
		SELECT data -> $3
		FROM documents
		WHERE collection = $1 AND id = $2
		FOR UPDATE
	`, match.Collection, match.ID, match.Field).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", match.Collection, match.ID, docstore.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s/%s: %w", match.Collection, match.ID, err)
	}

	var stored interface{}
	if raw != nil {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("failed to decode %s/%s.%s: %w", match.Collection, match.ID, match.Field, err)
		}
	}
	same, err := docstore.SameValue(stored, match.Value)
	if err != nil {
		return err
	}
	if !same {
		return fmt.Errorf("%s/%s field %s changed: %w", match.Collection, match.ID, match.Field, docstore.ErrPrecondition)
	}
	return nil
}

func applyWrite(ctx context.Context, tx *sql.Tx, w docstore.Write, now time.Time) error {
	if w.Kind == docstore.WriteDelete {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM documents
			WHERE collection = $1 AND id = $2
		`, w.Collection, w.ID)
		if err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", w.Collection, w.ID, err)
		}
		return nil
	}

	var raw []byte
	err := tx.QueryRowContext(ctx, `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
		FOR UPDATE
	`, w.Collection, w.ID).Scan(&raw)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to lock %s/%s: %w", w.Collection, w.ID, err)
	}
	if !exists && w.Kind == docstore.WriteUpdate {
		return fmt.Errorf("%s/%s: %w", w.Collection, w.ID, docstore.ErrNotFound)
	}

	var existing map[string]interface{}
	if exists {
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("failed to decode %s/%s: %w", w.Collection, w.ID, err)
		}
	}

	data, err := docstore.Apply(existing, w.Data, w.Merge, now)
	if err != nil {
		return fmt.Errorf("failed to apply write to %s/%s: %w", w.Collection, w.ID, err)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", w.Collection, w.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, w.Collection, w.ID, encoded, now)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", w.Collection, w.ID, err)
	}
	return nil
}

// buildQuery translates q into SQL. Field names are passed as parameters to
// the JSONB -> operator, never interpolated.
func buildQuery(collection string, q docstore.Query) (string, []interface{}, error) {
	var sb strings.Builder
	args := []interface{}{collection}
	sb.WriteString("SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1")

	for _, f := range q.Filters {
		var value interface{} = f.Value
		var op string
		switch f.Op {
		case docstore.OpEqual:
			op = "="
		case docstore.OpArrayContains:
			op = "@>"
			value = []interface{}{f.Value}
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filter on %s: %w", f.Field, err)
		}
		args = append(args, f.Field, string(encoded))
		fmt.Fprintf(&sb, " AND data -> $%d %s $%d::jsonb", len(args)-1, op, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Direction == docstore.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY data -> $%d %s, id ASC", len(args), dir)
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args, nil
}

func (d *DocumentClient) DB() *sql.DB {
	return d.db
}

func (d *DocumentClient) Close() error {
	return d.db.Close()
}

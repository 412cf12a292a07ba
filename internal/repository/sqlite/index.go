package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
	"github.com/kailas-cloud/docsage/internal/repository/rank"
)

// filterable maps metadata keys to columns.
var filterable = map[string]string{
	chunk.FieldTicketID:    "ticket_id",
	chunk.FieldContentType: "content_type",
	chunk.FieldContextLine: "context_line",
}

// Index implements domain.VectorIndex on a single collection of the store.
type Index struct {
	store      *Store
	collection string
	dims       int
}

// NewIndex binds a collection to the store. dims <= 0 disables dimension checks.
func NewIndex(s *Store, collection string, dims int) *Index {
	return &Index{store: s, collection: collection, dims: dims}
}

var _ domain.VectorIndex = (*Index)(nil)

// Ensure creates the database file and registers the collection.
func (x *Index) Ensure(ctx context.Context) error {
	db, err := x.store.conn(ctx, true)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO collections (name, dimensions) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		x.collection, x.dims)
	if err != nil {
		return fmt.Errorf("%w: register collection %s: %w", domain.ErrIndexUnavailable, x.collection, err)
	}
	return nil
}

// Upsert replaces chunks by id inside one transaction. Each write takes a fresh seq.
func (x *Index) Upsert(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if err := domain.CheckDimension(c.Vector, x.dims); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
	}

	db, err := x.open(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM chunks WHERE collection = ?`, x.collection,
	).Scan(&last); err != nil {
		return fmt.Errorf("%w: read seq: %w", domain.ErrIndexUnavailable, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, ticket_id, content_type, context_line, content, vector, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			ticket_id = excluded.ticket_id,
			content_type = excluded.content_type,
			context_line = excluded.context_line,
			content = excluded.content,
			vector = excluded.vector,
			seq = excluded.seq`)
	if err != nil {
		return fmt.Errorf("%w: prepare upsert: %w", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			x.collection, c.ID, c.TicketID, string(c.ContentType), c.ContextLine, c.Content,
			encodeVector(c.Vector), last+int64(i)+1,
		); err != nil {
			return fmt.Errorf("%w: upsert chunk %s: %w", domain.ErrIndexUnavailable, c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Query pre-filters rows in SQL and ranks the survivors by cosine similarity.
func (x *Index) Query(ctx context.Context, vector []float32, k int, f filter.Expression) ([]chunk.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if err := domain.CheckDimension(vector, x.dims); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	where, args, err := whereClause(f)
	if err != nil {
		return nil, err
	}

	db, err := x.open(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, ticket_id, content_type, context_line, content, vector, seq
		FROM chunks WHERE collection = ?` + where
	rows, err := db.QueryContext(ctx, query, append([]any{x.collection}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrIndexUnavailable, x.collection, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []rank.Entry
	for rows.Next() {
		var (
			c    chunk.Chunk
			ct   string
			blob []byte
			seq  int64
		)
		if err := rows.Scan(&c.ID, &c.TicketID, &ct, &c.ContextLine, &c.Content, &blob, &seq); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", domain.ErrIndexUnavailable, err)
		}
		if c.ContentType, err = chunk.ParseContentType(ct); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		stored := decodeVector(blob)
		if len(stored) != len(vector) {
			return nil, fmt.Errorf("chunk %s: %w: stored %d, query %d",
				c.ID, domain.ErrDimensionMismatch, len(stored), len(vector))
		}
		entries = append(entries, rank.Entry{
			Hit: chunk.Hit{Chunk: c, Score: rank.Cosine(vector, stored)},
			Seq: seq,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %w", domain.ErrIndexUnavailable, err)
	}

	return rank.Top(entries, k), nil
}

// Count returns the number of chunks in the collection.
func (x *Index) Count(ctx context.Context) (int, error) {
	db, err := x.open(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, x.collection,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", domain.ErrIndexUnavailable, x.collection, err)
	}
	return n, nil
}

// Ping checks the database file is reachable.
func (x *Index) Ping(ctx context.Context) error {
	return x.store.Ping(ctx)
}

// Close closes the underlying store.
func (x *Index) Close() error {
	return x.store.Close()
}

// open returns the connection of an existing, registered collection.
func (x *Index) open(ctx context.Context) (*sql.DB, error) {
	db, err := x.store.conn(ctx, false)
	if err != nil {
		return nil, err
	}
	var dims int
	err = db.QueryRowContext(ctx,
		`SELECT dimensions FROM collections WHERE name = ?`, x.collection,
	).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: collection %s does not exist", domain.ErrIndexUnavailable, x.collection)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup collection %s: %w", domain.ErrIndexUnavailable, x.collection, err)
	}
	if x.dims > 0 && dims > 0 && dims != x.dims {
		return nil, fmt.Errorf("collection %s: %w: created with %d, configured %d",
			x.collection, domain.ErrDimensionMismatch, dims, x.dims)
	}
	return db, nil
}

// whereClause renders the filter as SQL over whitelisted columns.
func whereClause(f filter.Expression) (string, []any, error) {
	var (
		b    strings.Builder
		args []any
	)
	col := func(c filter.Condition) (string, error) {
		name, ok := filterable[c.Key()]
		if !ok {
			return "", fmt.Errorf("%w: unknown filter key %q", domain.ErrInvalidArgument, c.Key())
		}
		return name, nil
	}

	for _, c := range f.Must() {
		name, err := col(c)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" AND " + name + " = ?")
		args = append(args, c.Match())
	}
	for _, c := range f.MustNot() {
		name, err := col(c)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" AND " + name + " != ?")
		args = append(args, c.Match())
	}
	if should := f.Should(); len(should) > 0 {
		parts := make([]string, 0, len(should))
		for _, c := range should {
			name, err := col(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, name+" = ?")
			args = append(args, c.Match())
		}
		b.WriteString(" AND (" + strings.Join(parts, " OR ") + ")")
	}
	return b.String(), args, nil
}

// encodeVector packs float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

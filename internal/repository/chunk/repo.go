// Package chunk stores indexed chunks as Redis/Valkey hashes under an FT vector index.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docsage/internal/db"
	"github.com/kailas-cloud/docsage/internal/db/redis"
	"github.com/kailas-cloud/docsage/internal/domain"
	domchunk "github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
	"github.com/kailas-cloud/docsage/internal/repository/rank"
)

const (
	fieldID      = "id"
	fieldContent = "__content"
	fieldVector  = "__vector"
	fieldSeq     = "seq"
	fieldScore   = "__vector_score"
)

var returnFields = []string{
	fieldID, fieldContent, fieldSeq, fieldScore,
	domchunk.FieldTicketID, domchunk.FieldContentType, domchunk.FieldContextLine,
}

// store is the consumer interface for the chunk index (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexDocCount(ctx context.Context, name string) (int, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config describes the FT index layout.
type Config struct {
	Collection  string // index name; keys live under <prefix><collection>:
	KeyPrefix   string
	Dimensions  int
	HNSWM       int
	EFConstruct int
}

// Repo implements domain.VectorIndex over FT.SEARCH.
type Repo struct {
	store   store
	cfg     Config
	closeFn func()
}

// New creates a chunk repository. closeFn releases the underlying client and may be nil.
func New(s store, cfg Config, closeFn func()) *Repo {
	return &Repo{store: s, cfg: cfg, closeFn: closeFn}
}

var _ domain.VectorIndex = (*Repo)(nil)

func (r *Repo) indexName() string { return r.cfg.KeyPrefix + r.cfg.Collection }
func (r *Repo) keyPrefix() string { return r.indexName() + ":" }
func (r *Repo) seqKey() string    { return r.indexName() + ":__seq" }

// Ensure creates the FT index if it does not exist yet.
func (r *Repo) Ensure(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.indexName()).
		Prefix(r.keyPrefix()).
		Tag(domchunk.FieldTicketID).
		Tag(domchunk.FieldContentType).
		Numeric(fieldSeq).
		VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("%w: create index %s: %w", domain.ErrIndexUnavailable, def.Name, err)
	}
	return nil
}

// Upsert writes chunks as hashes. Each write takes a fresh seq so re-inserted ids rank as new.
func (r *Repo) Upsert(ctx context.Context, chunks []domchunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if err := domain.CheckDimension(c.Vector, r.cfg.Dimensions); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
	}

	last, err := r.store.IncrBy(ctx, r.seqKey(), int64(len(chunks)))
	if err != nil {
		return fmt.Errorf("%w: allocate seq: %w", domain.ErrIndexUnavailable, err)
	}
	first := last - int64(len(chunks)) + 1

	items := make([]db.HashSetItem, len(chunks))
	for i, c := range chunks {
		items[i] = db.HashSetItem{
			Key: r.keyPrefix() + c.ID,
			Fields: map[string]string{
				fieldID:                   c.ID,
				fieldContent:              c.Content,
				fieldVector:               string(redis.VectorToBytes(c.Vector)),
				fieldSeq:                  strconv.FormatInt(first+int64(i), 10),
				domchunk.FieldTicketID:    c.TicketID,
				domchunk.FieldContentType: string(c.ContentType),
				domchunk.FieldContextLine: c.ContextLine,
			},
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("%w: hset chunks: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Query runs a pre-filtered KNN search and orders hits by score, then by seq.
func (r *Repo) Query(
	ctx context.Context, vector []float32, k int, f filter.Expression,
) ([]domchunk.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if err := domain.CheckDimension(vector, r.cfg.Dimensions); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Filters:      f,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn search %s: %w", domain.ErrIndexUnavailable, r.indexName(), err)
	}

	ranked := make([]rank.Entry, 0, len(res.Entries))
	for _, e := range res.Entries {
		c, seq, err := r.entryToChunk(e)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, rank.Entry{Hit: domchunk.Hit{Chunk: c, Score: e.Score}, Seq: seq})
	}
	return rank.Top(ranked, k), nil
}

// Count returns num_docs of the FT index.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.IndexDocCount(ctx, r.indexName())
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", domain.ErrIndexUnavailable, r.indexName(), err)
	}
	return n, nil
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Close releases the client.
func (r *Repo) Close() error {
	if r.closeFn != nil {
		r.closeFn()
	}
	return nil
}

func (r *Repo) entryToChunk(e db.SearchEntry) (domchunk.Chunk, int64, error) {
	ct, err := domchunk.ParseContentType(e.Fields[domchunk.FieldContentType])
	if err != nil {
		return domchunk.Chunk{}, 0, fmt.Errorf("entry %s: %w", e.Key, err)
	}
	seq, _ := strconv.ParseInt(e.Fields[fieldSeq], 10, 64)

	id := e.Fields[fieldID]
	if id == "" {
		id = strings.TrimPrefix(e.Key, r.keyPrefix())
	}
	return domchunk.Chunk{
		ID:          id,
		TicketID:    e.Fields[domchunk.FieldTicketID],
		ContentType: ct,
		ContextLine: e.Fields[domchunk.FieldContextLine],
		Content:     e.Fields[fieldContent],
	}, seq, nil
}

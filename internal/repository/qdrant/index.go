// Package qdrant stores chunks as points of a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
	"github.com/kailas-cloud/docsage/internal/repository/rank"
)

// Payload keys. Metadata tags reuse the chunk field names.
const (
	payloadID      = "id"
	payloadContent = "content"
	payloadSeq     = "seq"
)

// pointNamespace seeds deterministic point ids derived from chunk ids.
var pointNamespace = uuid.MustParse("6f1c1f5e-4d0b-4b8a-9d8e-2b9c6a7f3e10")

type collectionsAPI interface {
	CollectionExists(ctx context.Context, in *qdrantclient.CollectionExistsRequest, opts ...grpc.CallOption) (*qdrantclient.CollectionExistsResponse, error)
	Create(ctx context.Context, in *qdrantclient.CreateCollection, opts ...grpc.CallOption) (*qdrantclient.CollectionOperationResponse, error)
}

type pointsAPI interface {
	Upsert(ctx context.Context, in *qdrantclient.UpsertPoints, opts ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error)
	Search(ctx context.Context, in *qdrantclient.SearchPoints, opts ...grpc.CallOption) (*qdrantclient.SearchResponse, error)
	Count(ctx context.Context, in *qdrantclient.CountPoints, opts ...grpc.CallOption) (*qdrantclient.CountResponse, error)
}

type healthAPI interface {
	HealthCheck(ctx context.Context, in *qdrantclient.HealthCheckRequest, opts ...grpc.CallOption) (*qdrantclient.HealthCheckReply, error)
}

// Index implements domain.VectorIndex on one Qdrant collection.
type Index struct {
	collections collectionsAPI
	points      pointsAPI
	health      healthAPI
	collection  string
	dims        int
	closeFn     func() error
	now         func() time.Time
}

// Dial connects to a Qdrant gRPC endpoint (host:port) without TLS.
func Dial(addr, collection string, dims int) (*Index, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant %s: %w", domain.ErrIndexUnavailable, addr, err)
	}
	return &Index{
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		health:      qdrantclient.NewQdrantClient(conn),
		collection:  collection,
		dims:        dims,
		closeFn:     conn.Close,
		now:         time.Now,
	}, nil
}

var _ domain.VectorIndex = (*Index)(nil)

// Ensure creates the collection with cosine distance if it is missing.
func (x *Index) Ensure(ctx context.Context) error {
	if x.dims <= 0 {
		return fmt.Errorf("%w: qdrant collection needs positive dimensions", domain.ErrConfiguration)
	}
	resp, err := x.collections.CollectionExists(ctx, &qdrantclient.CollectionExistsRequest{
		CollectionName: x.collection,
	})
	if err != nil {
		return x.wrap("collection exists", err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = x.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(x.dims),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return x.wrap("create collection", err)
	}
	return nil
}

// Upsert writes points keyed by a UUID derived from the chunk id.
// Seq comes from the wall clock so later writes rank after earlier ones on ties.
func (x *Index) Upsert(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	base := x.now().UnixNano()
	points := make([]*qdrantclient.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		if err := domain.CheckDimension(c.Vector, x.dims); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: PointID(c.ID)},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: c.Vector},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				payloadID:              stringValue(c.ID),
				payloadContent:         stringValue(c.Content),
				payloadSeq:             {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: base + int64(i)}},
				chunk.FieldTicketID:    stringValue(c.TicketID),
				chunk.FieldContentType: stringValue(string(c.ContentType)),
				chunk.FieldContextLine: stringValue(c.ContextLine),
			},
		})
	}

	wait := true
	if _, err := x.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return x.wrap("upsert points", err)
	}
	return nil
}

// Query runs a filtered search and re-orders equal scores by seq.
func (x *Index) Query(ctx context.Context, vector []float32, k int, f filter.Expression) ([]chunk.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if err := domain.CheckDimension(vector, x.dims); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	resp, err := x.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: x.collection,
		Vector:         vector,
		Limit:          uint64(k),
		Filter:         toFilter(f),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, x.wrap("search", err)
	}

	entries := make([]rank.Entry, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		payload := p.GetPayload()
		ct, err := chunk.ParseContentType(payload[chunk.FieldContentType].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", p.GetId().GetUuid(), err)
		}
		entries = append(entries, rank.Entry{
			Hit: chunk.Hit{
				Chunk: chunk.Chunk{
					ID:          payload[payloadID].GetStringValue(),
					TicketID:    payload[chunk.FieldTicketID].GetStringValue(),
					ContentType: ct,
					ContextLine: payload[chunk.FieldContextLine].GetStringValue(),
					Content:     payload[payloadContent].GetStringValue(),
				},
				Score: float64(p.GetScore()),
			},
			Seq: payload[payloadSeq].GetIntegerValue(),
		})
	}
	return rank.Top(entries, k), nil
}

// Count returns the exact number of points.
func (x *Index) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := x.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: x.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, x.wrap("count", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Ping calls the Qdrant health check.
func (x *Index) Ping(ctx context.Context) error {
	if _, err := x.health.HealthCheck(ctx, &qdrantclient.HealthCheckRequest{}); err != nil {
		return x.wrap("health check", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (x *Index) Close() error {
	if x.closeFn == nil {
		return nil
	}
	return x.closeFn()
}

// PointID maps a chunk id to its stable point UUID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func (x *Index) wrap(op string, err error) error {
	return fmt.Errorf("%w: qdrant %s %s (%s): %w",
		domain.ErrIndexUnavailable, op, x.collection, status.Code(err), err)
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}

// toFilter converts the expression into keyword field conditions; nil when empty.
func toFilter(f filter.Expression) *qdrantclient.Filter {
	if f.IsEmpty() {
		return nil
	}
	conv := func(cs []filter.Condition) []*qdrantclient.Condition {
		out := make([]*qdrantclient.Condition, 0, len(cs))
		for _, c := range cs {
			out = append(out, &qdrantclient.Condition{
				ConditionOneOf: &qdrantclient.Condition_Field{
					Field: &qdrantclient.FieldCondition{
						Key: c.Key(),
						Match: &qdrantclient.Match{
							MatchValue: &qdrantclient.Match_Keyword{Keyword: c.Match()},
						},
					},
				},
			})
		}
		return out
	}
	return &qdrantclient.Filter{
		Must:    conv(f.Must()),
		Should:  conv(f.Should()),
		MustNot: conv(f.MustNot()),
	}
}

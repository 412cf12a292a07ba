package qdrant

import (
	"context"
	"errors"
	"testing"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
)

type fakeCollections struct {
	exists    bool
	existsErr error
	createErr error
	created   *qdrantclient.CreateCollection
}

func (f *fakeCollections) CollectionExists(
	_ context.Context, _ *qdrantclient.CollectionExistsRequest, _ ...grpc.CallOption,
) (*qdrantclient.CollectionExistsResponse, error) {
	if f.existsErr != nil {
		return nil, f.existsErr
	}
	return &qdrantclient.CollectionExistsResponse{
		Result: &qdrantclient.CollectionExists{Exists: f.exists},
	}, nil
}

func (f *fakeCollections) Create(
	_ context.Context, in *qdrantclient.CreateCollection, _ ...grpc.CallOption,
) (*qdrantclient.CollectionOperationResponse, error) {
	f.created = in
	return &qdrantclient.CollectionOperationResponse{Result: true}, f.createErr
}

type fakePoints struct {
	upserted *qdrantclient.UpsertPoints
	searched *qdrantclient.SearchPoints
	result   []*qdrantclient.ScoredPoint
	count    uint64
	err      error
}

func (f *fakePoints) Upsert(
	_ context.Context, in *qdrantclient.UpsertPoints, _ ...grpc.CallOption,
) (*qdrantclient.PointsOperationResponse, error) {
	f.upserted = in
	return &qdrantclient.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Search(
	_ context.Context, in *qdrantclient.SearchPoints, _ ...grpc.CallOption,
) (*qdrantclient.SearchResponse, error) {
	f.searched = in
	if f.err != nil {
		return nil, f.err
	}
	return &qdrantclient.SearchResponse{Result: f.result}, nil
}

func (f *fakePoints) Count(
	_ context.Context, _ *qdrantclient.CountPoints, _ ...grpc.CallOption,
) (*qdrantclient.CountResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &qdrantclient.CountResponse{Result: &qdrantclient.CountResult{Count: f.count}}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(
	_ context.Context, _ *qdrantclient.HealthCheckRequest, _ ...grpc.CallOption,
) (*qdrantclient.HealthCheckReply, error) {
	return &qdrantclient.HealthCheckReply{}, f.err
}

func newTestIndex(c *fakeCollections, p *fakePoints, dims int) *Index {
	return &Index{
		collections: c,
		points:      p,
		health:      fakeHealth{},
		collection:  "release_notes",
		dims:        dims,
		now:         func() time.Time { return time.Unix(0, 1000) },
	}
}

func scored(id string, ct chunk.ContentType, score float32, seq int64) *qdrantclient.ScoredPoint {
	return &qdrantclient.ScoredPoint{
		Id:    &qdrantclient.PointId{PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: PointID(id)}},
		Score: score,
		Payload: map[string]*qdrantclient.Value{
			payloadID:              stringValue(id),
			payloadContent:         stringValue("text of " + id),
			payloadSeq:             {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: seq}},
			chunk.FieldTicketID:    stringValue("T-1"),
			chunk.FieldContentType: stringValue(string(ct)),
		},
	}
}

func TestEnsure_CreatesMissingCollection(t *testing.T) {
	c := &fakeCollections{}
	x := newTestIndex(c, &fakePoints{}, 4)

	if err := x.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if c.created == nil {
		t.Fatal("expected Create call")
	}
	params := c.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 4 || params.GetDistance() != qdrantclient.Distance_Cosine {
		t.Errorf("unexpected params: %+v", params)
	}
}

func TestEnsure_ExistingCollection(t *testing.T) {
	c := &fakeCollections{exists: true}
	x := newTestIndex(c, &fakePoints{}, 4)
	if err := x.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if c.created != nil {
		t.Error("create should not be called")
	}
}

func TestEnsure_AlreadyExistsRace(t *testing.T) {
	c := &fakeCollections{createErr: status.Error(codes.AlreadyExists, "exists")}
	x := newTestIndex(c, &fakePoints{}, 4)
	if err := x.Ensure(context.Background()); err != nil {
		t.Fatalf("AlreadyExists should be tolerated: %v", err)
	}
}

func TestEnsure_Unavailable(t *testing.T) {
	c := &fakeCollections{existsErr: status.Error(codes.Unavailable, "down")}
	x := newTestIndex(c, &fakePoints{}, 4)
	if err := x.Ensure(context.Background()); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestUpsert_BuildsPoints(t *testing.T) {
	p := &fakePoints{}
	x := newTestIndex(&fakeCollections{}, p, 2)

	err := x.Upsert(context.Background(), []chunk.Chunk{
		{ID: "T-1_note", TicketID: "T-1", ContentType: chunk.ContentReleaseNote, Content: "n", Vector: []float32{1, 0}},
		{ID: "T-1_comment_0", TicketID: "T-1", ContentType: chunk.ContentReviewComment, ContextLine: "File: a, Line: 1", Content: "c", Vector: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	pts := p.upserted.GetPoints()
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	if pts[0].GetId().GetUuid() != PointID("T-1_note") {
		t.Errorf("unexpected point id %s", pts[0].GetId().GetUuid())
	}
	if got := pts[1].GetPayload()[chunk.FieldContextLine].GetStringValue(); got != "File: a, Line: 1" {
		t.Errorf("context line = %q", got)
	}
	if pts[0].GetPayload()[payloadSeq].GetIntegerValue() >= pts[1].GetPayload()[payloadSeq].GetIntegerValue() {
		t.Error("seq must increase within a batch")
	}
	if !p.upserted.GetWait() {
		t.Error("upsert should wait for the write")
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	p := &fakePoints{}
	x := newTestIndex(&fakeCollections{}, p, 3)
	err := x.Upsert(context.Background(), []chunk.Chunk{{ID: "a", Vector: []float32{1}}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if p.upserted != nil {
		t.Error("nothing should be written")
	}
}

func TestPointID_Deterministic(t *testing.T) {
	if PointID("x") != PointID("x") {
		t.Error("point id must be stable")
	}
	if PointID("x") == PointID("y") {
		t.Error("distinct chunk ids must map to distinct points")
	}
}

func TestQuery_TieBreakAndFilter(t *testing.T) {
	p := &fakePoints{result: []*qdrantclient.ScoredPoint{
		scored("late", chunk.ContentReviewComment, 0.9, 20),
		scored("early", chunk.ContentReviewComment, 0.9, 10),
		scored("low", chunk.ContentReviewComment, 0.5, 1),
	}}
	x := newTestIndex(&fakeCollections{}, p, 2)

	hits, err := x.Query(context.Background(), []float32{1, 0}, 3,
		filter.Eq(chunk.FieldContentType, string(chunk.ContentReviewComment)))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if hits[0].ID != "early" || hits[1].ID != "late" || hits[2].ID != "low" {
		t.Errorf("unexpected order: %s %s %s", hits[0].ID, hits[1].ID, hits[2].ID)
	}
	if p.searched.GetLimit() != 3 {
		t.Errorf("limit = %d", p.searched.GetLimit())
	}
	must := p.searched.GetFilter().GetMust()
	if len(must) != 1 {
		t.Fatalf("expected 1 must condition, got %d", len(must))
	}
	fc := must[0].GetField()
	if fc.GetKey() != chunk.FieldContentType || fc.GetMatch().GetKeyword() != "review_comment" {
		t.Errorf("unexpected condition %+v", fc)
	}
}

func TestQuery_EmptyFilterIsNil(t *testing.T) {
	p := &fakePoints{}
	x := newTestIndex(&fakeCollections{}, p, 2)
	if _, err := x.Query(context.Background(), []float32{1, 0}, 2, filter.Expression{}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if p.searched.GetFilter() != nil {
		t.Error("empty expression should send no filter")
	}
}

func TestQuery_Errors(t *testing.T) {
	x := newTestIndex(&fakeCollections{}, &fakePoints{err: status.Error(codes.NotFound, "no collection")}, 2)
	ctx := context.Background()

	if _, err := x.Query(ctx, []float32{1, 0}, 2, filter.Expression{}); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
	if _, err := x.Query(ctx, []float32{1, 0}, 0, filter.Expression{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := x.Query(ctx, []float32{1}, 1, filter.Expression{}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCountAndPing(t *testing.T) {
	x := newTestIndex(&fakeCollections{}, &fakePoints{count: 7}, 2)
	n, err := x.Count(context.Background())
	if err != nil || n != 7 {
		t.Errorf("count = %d, %v", n, err)
	}
	if err := x.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}

	x.health = fakeHealth{err: status.Error(codes.Unavailable, "down")}
	if err := x.Ping(context.Background()); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

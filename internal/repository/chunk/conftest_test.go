package chunk

import (
	"context"

	"github.com/kailas-cloud/docsage/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	pingErr error

	hsetItems []db.HashSetItem
	hsetErr   error

	seq     int64
	incrErr error

	created   *db.IndexDefinition
	exists    bool
	existsErr error
	createErr error

	docCount int
	countErr error

	lastQuery *db.KNNQuery
	result    *db.SearchResult
	searchErr error
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	m.hsetItems = append(m.hsetItems, items...)
	return nil
}

func (m *mockStore) IncrBy(_ context.Context, _ string, val int64) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.seq += val
	return m.seq, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = def
	return m.createErr
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockStore) IndexDocCount(_ context.Context, _ string) (int, error) {
	return m.docCount, m.countErr
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastQuery = q
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.result == nil {
		return &db.SearchResult{}, nil
	}
	return m.result, nil
}

func newTestRepo(ms *mockStore) *Repo {
	return New(ms, Config{Collection: "release_notes", KeyPrefix: "docsage:", Dimensions: 2}, nil)
}

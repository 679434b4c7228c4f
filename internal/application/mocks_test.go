package application

import (
	"context"
	"encoding/json"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ports/output"
)

// mockStore implements output.SpatialStore for testing.
type mockStore struct {
	fragments  map[domain.LayerName][]json.RawMessage
	facilities []domain.Facility
	counts     map[domain.LayerName]int64
	totals     map[domain.LayerName]int64

	queryErr error
	countErr error
	beginErr error
	pingErr  error

	tx *mockTx
}

func newMockStore() *mockStore {
	return &mockStore{
		fragments: map[domain.LayerName][]json.RawMessage{},
		counts:    map[domain.LayerName]int64{},
		totals:    map[domain.LayerName]int64{},
		tx:        &mockTx{},
	}
}

func (m *mockStore) QueryFragments(_ context.Context, layer domain.LayerName, _ string, _ int) ([]json.RawMessage, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.fragments[layer], nil
}

func (m *mockStore) QueryAllFragments(_ context.Context, layer domain.LayerName) ([]json.RawMessage, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.fragments[layer], nil
}

func (m *mockStore) QueryFacilities(_ context.Context, _ string, _ int) ([]domain.Facility, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.facilities, nil
}

func (m *mockStore) QueryAllFacilities(_ context.Context) ([]domain.Facility, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.facilities, nil
}

func (m *mockStore) CountMatching(_ context.Context, layer domain.LayerName, _ domain.DatasetKey) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.counts[layer], nil
}

func (m *mockStore) CountLayer(_ context.Context, layer domain.LayerName) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.totals[layer], nil
}

func (m *mockStore) Begin(_ context.Context) (output.StoreTx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

func (m *mockStore) Ping(_ context.Context) error {
	return m.pingErr
}

// mockTx implements output.StoreTx, recording every call.
type mockTx struct {
	deleted  []domain.LayerName
	inserted []domain.Feature

	deletePerLayer  map[domain.LayerName]int64
	deleteErr       error
	insertErr       error
	insertFailAfter int // fail on the Nth insert (1-based); 0 = honor insertErr always
	commitErr       error

	committed  bool
	rolledBack bool
}

func (m *mockTx) DeleteMatching(_ context.Context, layer domain.LayerName, _ domain.DatasetKey) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deleted = append(m.deleted, layer)
	if m.deletePerLayer != nil {
		return m.deletePerLayer[layer], nil
	}
	return 0, nil
}

func (m *mockTx) InsertFeature(_ context.Context, feature domain.Feature) error {
	if m.insertErr != nil {
		if m.insertFailAfter == 0 || len(m.inserted)+1 >= m.insertFailAfter {
			return m.insertErr
		}
	}
	m.inserted = append(m.inserted, feature)
	return nil
}

func (m *mockTx) Commit() error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback() error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

// confirmRecorder is an output.ConfirmReplace that records its invocation.
type confirmRecorder struct {
	called   bool
	key      domain.DatasetKey
	existing int64
	answer   bool
}

func (c *confirmRecorder) fn() output.ConfirmReplace {
	return func(key domain.DatasetKey, existing int64) bool {
		c.called = true
		c.key = key
		c.existing = existing
		return c.answer
	}
}

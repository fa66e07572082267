package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
	"github.com/iliyamo/clinic-booking-saga/internal/store"
)

// In-memory fakes for the external handles. The store round-trips records
// through JSON so tests observe the same copy semantics as the Redis store:
// a loaded state is a snapshot, not an alias of the saved one.

type memStore struct {
	mu      sync.Mutex
	records map[string][]byte
	failing bool
}

func newMemStore() *memStore {
	return &memStore{records: map[string][]byte{}}
}

func (m *memStore) Save(_ context.Context, state *model.TransactionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("store unavailable")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.records[state.RequestID] = data
	return nil
}

func (m *memStore) Get(_ context.Context, requestID string) (*model.TransactionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.records[requestID]
	if !ok {
		return nil, store.ErrNotFound
	}
	var state model.TransactionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// memLog is both the appender and the stream: entries accumulate in order and
// tests pump them through the dispatcher synchronously.
type memLog struct {
	mu      sync.Mutex
	entries []store.StreamEntry
}

func newMemLog() *memLog { return &memLog{} }

func (l *memLog) Append(_ context.Context, typ model.EventType, requestID string, _ map[string]any) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := fmt.Sprintf("%d-0", len(l.entries))
	l.entries = append(l.entries, store.StreamEntry{ID: id, EventType: typ, RequestID: requestID})
	return id, nil
}

func (l *memLog) Read(_ context.Context, _ string, _ int64, _ time.Duration) ([]store.StreamEntry, error) {
	return nil, nil // tests pump HandleEvent directly
}

// types returns the event types appended so far.
func (l *memLog) types() []model.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.EventType, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.EventType
	}
	return out
}

// memQuota is a single atomic counter standing in for one day's key.
type memQuota struct {
	mu          sync.Mutex
	count       int64
	failRelease bool
}

func (q *memQuota) Reserve(context.Context) (int64, string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.count++
	return q.count, "quota:discount:2026-01-01", nil
}

func (q *memQuota) Release(context.Context, string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failRelease {
		return errors.New("counter unavailable")
	}
	q.count--
	if q.count < 0 {
		q.count = 0
	}
	return nil
}

func (q *memQuota) value() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

type memFlag struct{ enabled bool }

func (f *memFlag) Enabled(context.Context) bool { return f.enabled }

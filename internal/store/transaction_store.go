package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

const txnKeyPrefix = "txn:"

// TransactionStore persists transaction records as JSON values under
// txn:<request_id>. Every Save overwrites the record and re-arms the idle
// expiry, so a record disappears a fixed interval after its last write.
type TransactionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTransactionStore returns a TransactionStore bound to the given client.
// ttl is the idle expiry applied on every write.
func NewTransactionStore(rdb *redis.Client, ttl time.Duration) *TransactionStore {
	return &TransactionStore{rdb: rdb, ttl: ttl}
}

// Save overwrites the record for state.RequestID and resets its expiry.
func (s *TransactionStore) Save(ctx context.Context, state *model.TransactionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal transaction %s: %w", state.RequestID, err)
	}
	if err := s.rdb.Set(ctx, txnKeyPrefix+state.RequestID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save transaction %s: %w", state.RequestID, err)
	}
	return nil
}

// Get returns the current record for the request id, or ErrNotFound if the
// record does not exist or has expired.
func (s *TransactionStore) Get(ctx context.Context, requestID string) (*model.TransactionState, error) {
	data, err := s.rdb.Get(ctx, txnKeyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", requestID, err)
	}
	var state model.TransactionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal transaction %s: %w", requestID, err)
	}
	return &state, nil
}

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

const (
	// streamName is the shared, length-bounded event stream all transactions
	// append to.
	streamName = "booking:events"
	// maxStreamLength caps the stream; the oldest entries are trimmed past it.
	maxStreamLength = 100
)

// NowCursor makes a tail start at the next entry appended after the read
// begins. Entries appended earlier are never delivered to that reader.
const NowCursor = "$"

// StreamEntry is one record read back from the event stream.
type StreamEntry struct {
	ID        string // monotonically ordered stream entry id
	EventType model.EventType
	RequestID string
}

// EventLog appends domain events to the shared Redis stream and tails it for
// the choreography dispatcher. The stream is trimmed to a fixed maximum
// length on every append, so it is a coordination channel, not an archive;
// the authoritative audit trail lives on each transaction record.
type EventLog struct {
	rdb *redis.Client
}

// NewEventLog returns an EventLog bound to the given client.
func NewEventLog(rdb *redis.Client) *EventLog {
	return &EventLog{rdb: rdb}
}

// Append publishes an event tagged with the transaction id and returns the
// stream entry id. data is serialized as a single JSON field.
func (l *EventLog) Append(ctx context.Context, typ model.EventType, requestID string, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal event data: %w", err)
	}
	id, err := l.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		MaxLen: maxStreamLength,
		Values: map[string]any{
			"event_type": string(typ),
			"request_id": requestID,
			"data":       string(payload),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append event %s: %w", typ, err)
	}
	return id, nil
}

// Read blocks for up to block waiting for entries after lastID and returns at
// most count of them. A timeout returns an empty slice and no error.
func (l *EventLog) Read(ctx context.Context, lastID string, count int64, block time.Duration) ([]StreamEntry, error) {
	streams, err := l.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{streamName, lastID},
		Count:   count,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	var entries []StreamEntry
	for _, s := range streams {
		for _, msg := range s.Messages {
			e := StreamEntry{ID: msg.ID}
			if v, ok := msg.Values["event_type"].(string); ok {
				e.EventType = model.EventType(v)
			}
			if v, ok := msg.Values["request_id"].(string); ok {
				e.RequestID = v
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

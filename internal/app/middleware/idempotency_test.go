package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akwa/internal/app/commands"
	"akwa/internal/app/middleware"
)

type refundCommand struct{ key string }

func (c refundCommand) Key() string            { return "refund.issue" }
func (c refundCommand) IdempotencyKey() string { return c.key }
func (c refundCommand) ResultPrototype() any   { return &refundResult{} }

type refundResult struct {
	Amount int64 `json:"amount"`
}

type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &refundResult{Amount: int64(100 * b.calls)}, nil
}

type recordingStore struct {
	records map[string]middleware.IdempotencyRecord
	saveErr error
}

func (s *recordingStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *recordingStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records[rec.Key] = rec
	return nil
}

func TestIdempotency_ReplaysStoredSuccess(t *testing.T) {
	bus := &countingBus{}
	store := &recordingStore{records: map[string]middleware.IdempotencyRecord{}}
	pipeline := middleware.ChainCommands(bus, middleware.Idempotency(store, nil, nil))

	first, err := pipeline.Dispatch(context.Background(), refundCommand{key: "k-1"})
	require.NoError(t, err)
	second, err := pipeline.Dispatch(context.Background(), refundCommand{key: "k-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, bus.calls)
	assert.Equal(t, first.(*refundResult).Amount, second.(*refundResult).Amount)
	assert.Contains(t, store.records, "refund.issue:k-1")
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	bus := &countingBus{err: errors.New("rejected")}
	store := &recordingStore{records: map[string]middleware.IdempotencyRecord{}}
	pipeline := middleware.ChainCommands(bus, middleware.Idempotency(store, nil, nil))

	_, err := pipeline.Dispatch(context.Background(), refundCommand{key: "k-1"})
	require.Error(t, err)
	assert.Empty(t, store.records)
}

func TestIdempotency_SaveFailureKeepsResult(t *testing.T) {
	bus := &countingBus{}
	store := &recordingStore{records: map[string]middleware.IdempotencyRecord{}, saveErr: errors.New("redis down")}
	pipeline := middleware.ChainCommands(bus, middleware.Idempotency(store, nil, nil))

	res, err := pipeline.Dispatch(context.Background(), refundCommand{key: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.(*refundResult).Amount)
}

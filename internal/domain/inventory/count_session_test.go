package inventory

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenSession(t *testing.T) CountSession {
	t.Helper()
	s, err := NewCountSession(uuid.New(), uuid.New(), "clerk-1", time.Now())
	require.NoError(t, err)
	return s
}

func TestNewCountSession(t *testing.T) {
	s := newOpenSession(t)

	assert.True(t, s.IsOpen())
	assert.Empty(t, s.Items)
	assert.Empty(t, s.Entries())

	_, err := NewCountSession(uuid.Nil, uuid.Nil, "", time.Now())
	assert.Error(t, err)
}

func TestCountSession_RecordScan(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	productID := uuid.New()

	t.Run("accumulates quantity and keeps receiver unchanged", func(t *testing.T) {
		s := newOpenSession(t)

		s1, err := s.RecordScan(productID, uuid.Nil, dec("1"), t0)
		require.NoError(t, err)
		s2, err := s1.RecordScan(productID, uuid.Nil, dec("2.5"), t0.Add(time.Minute))
		require.NoError(t, err)

		assert.Empty(t, s.Items)
		assert.Len(t, s1.Items, 1)
		item := s2.Items[productID]
		assert.True(t, item.CountedQty.Equal(dec("3.5")))
		assert.Equal(t, 2, item.Scans)
		assert.Equal(t, t0, item.FirstScannedAt)
		assert.Equal(t, t0.Add(time.Minute), item.LastScannedAt)
		assert.Equal(t, s.WarehouseID, item.WarehouseID)
	})

	t.Run("earlier out-of-order scan moves first scan back", func(t *testing.T) {
		s := newOpenSession(t)

		s, _ = s.RecordScan(productID, uuid.Nil, dec("1"), t0.Add(time.Minute))
		s, _ = s.RecordScan(productID, uuid.Nil, dec("1"), t0)

		assert.Equal(t, t0, s.Items[productID].FirstScannedAt)
		assert.Equal(t, t0.Add(time.Minute), s.Items[productID].LastScannedAt)
	})

	t.Run("item warehouse overrides session warehouse", func(t *testing.T) {
		s := newOpenSession(t)
		other := uuid.New()

		s, err := s.RecordScan(productID, other, dec("1"), t0)

		require.NoError(t, err)
		assert.Equal(t, other, s.Items[productID].WarehouseID)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		s := newOpenSession(t)

		_, err := s.RecordScan(productID, uuid.Nil, dec("0"), t0)

		assert.Error(t, err)
	})
}

func TestCountSession_SetCountAndRemove(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	productID := uuid.New()
	s := newOpenSession(t)

	s, err := s.RecordScan(productID, uuid.Nil, dec("4"), t0)
	require.NoError(t, err)
	s, err = s.SetCount(productID, dec("2"), t0.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, s.Items[productID].CountedQty.Equal(dec("2")))
	assert.Equal(t, t0, s.Items[productID].FirstScannedAt)

	_, err = s.SetCount(productID, dec("-1"), t0)
	assert.True(t, errors.Is(err, ErrNegativeCountedQty))

	s, err = s.RemoveItem(productID)
	require.NoError(t, err)
	assert.Empty(t, s.Items)

	_, err = s.RemoveItem(productID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestCountSession_Entries(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s := newOpenSession(t)
	a, b := uuid.New(), uuid.New()

	s, _ = s.RecordScan(a, uuid.Nil, dec("3"), t0.Add(2*time.Minute))
	s, _ = s.RecordScan(b, uuid.Nil, dec("1"), t0)

	entries := s.Entries()
	again := s.Entries()

	require.Len(t, entries, 2)
	assert.Equal(t, entries, again)
	for _, e := range entries {
		assert.Equal(t, s.StoreID, e.StoreID)
		assert.Equal(t, s.EntryKey(e.ProductID, e.WarehouseID), e.IdempotencyKey)
		assert.Equal(t, s.Items[e.ProductID].FirstScannedAt, e.CountedAt)
	}
	assert.True(t, entries[0].ProductID.String() < entries[1].ProductID.String())
}

func TestCountSession_Lifecycle(t *testing.T) {
	s := newOpenSession(t)
	productID := uuid.New()
	s, _ = s.RecordScan(productID, uuid.Nil, dec("1"), time.Now())

	result := NewUnprocessedResult(s.Entries()[0], ResultStatusFailed, ErrUnknownProduct)
	submitted, err := s.MarkSubmitted([]*ReconciliationResult{result}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, CountSessionStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.Len(t, submitted.Results, 1)
	assert.Equal(t, CodeUnknownProduct, submitted.Results[0].ErrorCode)
	assert.True(t, s.IsOpen())

	_, err = submitted.RecordScan(productID, uuid.Nil, dec("1"), time.Now())
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	_, err = submitted.MarkDiscarded()
	assert.True(t, errors.Is(err, ErrCountSessionNotOpen))

	discarded, err := s.MarkDiscarded()
	require.NoError(t, err)
	assert.Equal(t, CountSessionStatusDiscarded, discarded.Status)
}

func TestCountSession_IncompleteAfterRetryableResults(t *testing.T) {
	s := newOpenSession(t)
	productID := uuid.New()
	s, _ = s.RecordScan(productID, uuid.Nil, dec("4"), time.Now())
	entry := s.Entries()[0]

	tests := []struct {
		name   string
		result *ReconciliationResult
		want   CountSessionStatus
	}{
		{"cancelled", NewUnprocessedResult(entry, ResultStatusSkipped, ErrCancelled), CountSessionStatusIncomplete},
		{"conflicts exhausted", NewUnprocessedResult(entry, ResultStatusFailed, shared.ErrConcurrencyConflict), CountSessionStatusIncomplete},
		{"validation failure", NewUnprocessedResult(entry, ResultStatusFailed, ErrUnknownProduct), CountSessionStatusSubmitted},
		{"duplicate in batch", NewUnprocessedResult(entry, ResultStatusSkipped, ErrDuplicateInBatch), CountSessionStatusSubmitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := s.MarkSubmitted([]*ReconciliationResult{tt.result}, time.Now())
			require.NoError(t, err)
			assert.Equal(t, tt.want, next.Status)
		})
	}

	incomplete, err := s.MarkSubmitted([]*ReconciliationResult{
		NewUnprocessedResult(entry, ResultStatusSkipped, ErrCancelled),
	}, time.Now())
	require.NoError(t, err)
	assert.False(t, incomplete.IsOpen())
	assert.True(t, incomplete.CanSubmit())

	// Counts are frozen once submitted
	_, err = incomplete.RecordScan(productID, uuid.Nil, dec("1"), time.Now())
	assert.True(t, errors.Is(err, ErrCountSessionNotOpen))

	done, err := incomplete.MarkSubmitted([]*ReconciliationResult{
		NewUnprocessedResult(entry, ResultStatusNoOp, nil),
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, CountSessionStatusSubmitted, done.Status)
	assert.False(t, done.CanSubmit())
}

func TestCountSession_JSONRoundTrip(t *testing.T) {
	s := newOpenSession(t)
	productID := uuid.New()
	s, _ = s.RecordScan(productID, uuid.Nil, dec("2.125"), time.Now())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded CountSession
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, s.ID, decoded.ID)
	assert.True(t, decoded.Items[productID].CountedQty.Equal(dec("2.125")))
	assert.Equal(t, s.Entries()[0].IdempotencyKey, decoded.Entries()[0].IdempotencyKey)
}

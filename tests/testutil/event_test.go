package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/stockrecon/internal/domain/shared"
)

func stubEvent(eventType string, storeID uuid.UUID) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Stub", uuid.New(), storeID)
	return &e
}

func TestRecordingEventHandler(t *testing.T) {
	h := NewRecordingEventHandler("a", "b")
	assert.Equal(t, []string{"a", "b"}, h.EventTypes())

	storeID := TestStoreID()
	require.NoError(t, h.Handle(context.Background(), stubEvent("a", storeID)))
	require.NoError(t, h.Handle(context.Background(), stubEvent("b", storeID)))

	assert.Equal(t, 2, h.Count())
	require.Len(t, h.HandledOfType("a"), 1)
	assert.Equal(t, storeID, h.HandledOfType("a")[0].StoreID())

	boom := errors.New("boom")
	h.FailWith(boom)
	assert.ErrorIs(t, h.Handle(context.Background(), stubEvent("a", storeID)), boom)
	assert.Equal(t, 3, h.Count())
}

func TestWaitForEventCount(t *testing.T) {
	h := NewRecordingEventHandler()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = h.Handle(context.Background(), stubEvent("late", TestStoreID()))
	}()

	assert.True(t, WaitForEventCount(t, h, 1, time.Second))
	assert.False(t, WaitForEventCount(t, h, 2, 30*time.Millisecond))
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("x"), NewTestUUID("x"))
	assert.NotEqual(t, NewTestUUID("x"), NewTestUUID("y"))
}

func TestNewMockDB(t *testing.T) {
	db := NewMockDB(t)
	db.Mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, db.DB.Exec("SELECT 1").Error)
	db.ExpectationsWereMet(t)
}

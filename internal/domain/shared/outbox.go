package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox row
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	// OutboxStatusDead rows exhausted their retries and wait for an operator
	OutboxStatusDead OutboxStatus = "DEAD"
)

// ErrOutboxTransition is returned for a status change the delivery cycle
// does not allow
var ErrOutboxTransition = errors.New("invalid outbox status transition")

// Retry schedule for failed deliveries
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	DefaultMaxBackoff  = 5 * time.Minute
)

// OutboxEntry is one serialized domain event. It is inserted by the same
// transaction as the ledger change that raised it and relayed to the event
// bus afterwards.
type OutboxEntry struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	StoreID       uuid.UUID    `gorm:"type:uuid;not null;index"`
	EventID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string       `gorm:"type:varchar(100);not null"`
	AggregateID   uuid.UUID    `gorm:"type:uuid;not null"`
	AggregateType string       `gorm:"type:varchar(100);not null"`
	Payload       []byte       `gorm:"not null"`
	Status        OutboxStatus `gorm:"type:varchar(20);not null;index:idx_outbox_status_created,priority:1"`
	RetryCount    int          `gorm:"not null;default:0"`
	MaxRetries    int          `gorm:"not null;default:5"`
	LastError     string       `gorm:"type:text"`
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (OutboxEntry) TableName() string {
	return "outbox_entries"
}

// NewOutboxEntry wraps a serialized event as a pending row
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:            uuid.New(),
		StoreID:       event.StoreID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// claimable lists the states a processor may pick a row up from
var claimable = map[OutboxStatus]bool{
	OutboxStatusPending: true,
	OutboxStatusFailed:  true,
}

// MarkProcessing claims the row for one delivery attempt
func (e *OutboxEntry) MarkProcessing() error {
	if !claimable[e.Status] {
		return fmt.Errorf("%w: %s to %s", ErrOutboxTransition, e.Status, OutboxStatusProcessing)
	}
	e.setStatus(OutboxStatusProcessing, time.Now().UTC())
	return nil
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent() {
	now := time.Now().UTC()
	e.setStatus(OutboxStatusSent, now)
	e.ProcessedAt = &now
}

// MarkFailed records a failed delivery. The row is rescheduled after
// RetryBackoff, or becomes dead once RetryCount reaches MaxRetries.
func (e *OutboxEntry) MarkFailed(reason string) {
	now := time.Now().UTC()
	e.RetryCount++
	e.LastError = reason
	if e.RetryCount >= e.MaxRetries {
		e.setStatus(OutboxStatusDead, now)
		e.NextRetryAt = nil
		return
	}
	e.setStatus(OutboxStatusFailed, now)
	next := now.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

func (e *OutboxEntry) setStatus(status OutboxStatus, at time.Time) {
	e.Status = status
	e.UpdatedAt = at
}

// RetryBackoff is the wait before retry number attempt, counting from 1. It
// doubles from DefaultBaseBackoff and stops growing at DefaultMaxBackoff.
func RetryBackoff(attempt int) time.Duration {
	if attempt <= 1 {
		return DefaultBaseBackoff
	}
	if attempt > 32 {
		return DefaultMaxBackoff
	}
	return min(DefaultBaseBackoff<<(attempt-1), DefaultMaxBackoff)
}

// OutboxRepository stores outbox rows for the delivery processor
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// ClaimDue moves up to limit deliverable rows to PROCESSING and returns
	// them oldest first. Deliverable means PENDING, or FAILED with
	// NextRetryAt at or before now. Rows another processor holds are skipped.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// Update persists the delivery state of a claimed row
	Update(ctx context.Context, entry *OutboxEntry) error
	// PurgeSent deletes SENT rows processed before the cutoff
	PurgeSent(ctx context.Context, before time.Time) (int64, error)
	// ReleaseStale hands rows stuck in PROCESSING since before back to PENDING
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}

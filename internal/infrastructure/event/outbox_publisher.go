package event

import (
	"context"
	"fmt"

	"github.com/erp/stockrecon/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher turns domain events into outbox rows. Rows are written
// with the caller's transaction handle, so an event exists only if the
// movement that raised it commits.
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates an OutboxPublisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// Write serializes events and inserts them through tx. Serialization is done
// up front so an unknown event type writes nothing.
func (p *OutboxPublisher) Write(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries[i] = shared.NewOutboxEntry(event, payload)
	}

	if err := NewGormOutboxRepository(tx).Save(ctx, entries...); err != nil {
		return fmt.Errorf("write %d outbox entries: %w", len(entries), err)
	}
	return nil
}

// Bind returns an EventPublisher that writes through tx
func (p *OutboxPublisher) Bind(tx *gorm.DB) shared.EventPublisher {
	return boundOutbox{publisher: p, tx: tx}
}

type boundOutbox struct {
	publisher *OutboxPublisher
	tx        *gorm.DB
}

func (b boundOutbox) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return b.publisher.Write(ctx, b.tx, events...)
}
